// Package transfer moves git repository content between instances with
// mirror clones and pushes, including LFS objects when enabled.
package transfer
