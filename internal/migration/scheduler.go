package migration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

const (
	batchPanicTemplateConstant          = "batch processing panic: %v"
	entityPanicTemplateConstant         = "entity processing panic: %v"
	batchStartedMessageConstant         = "Batch started"
	batchCompletedMessageConstant       = "Batch completed"
	schedulerAcquireFailureTemplate     = "acquire batch slot: %v"
	logFieldBatchIndexConstant          = "batch_index"
	logFieldBatchEntityCountConstant    = "entity_count"
	logFieldSchedulerEntityKindConstant = "entity_kind"
)

// RunBatches splits entities into contiguous batches of batchSize and runs at
// most maxConcurrentBatches batches at a time. Entities inside an in-flight
// batch all run concurrently. Exactly one Result is returned per entity, in
// input order; panics at the entity or batch level become failed results for
// the affected entities instead of aborting siblings.
func RunBatches[Entity any](
	executionContext context.Context,
	logger *zap.Logger,
	strategy Strategy[Entity],
	entities []Entity,
	batchSize int,
	maxConcurrentBatches int,
) []Result {
	if len(entities) == 0 {
		return []Result{}
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSizeConstant
	}
	if maxConcurrentBatches <= 0 {
		maxConcurrentBatches = defaultMaxConcurrentBatchesConstant
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	collectedResults := make([]Result, len(entities))
	batchSemaphore := semaphore.NewWeighted(int64(maxConcurrentBatches))
	batchWaitGroup := sync.WaitGroup{}

	batchIndex := 0
	for batchStart := 0; batchStart < len(entities); batchStart += batchSize {
		batchEnd := batchStart + batchSize
		if batchEnd > len(entities) {
			batchEnd = len(entities)
		}

		if acquireError := batchSemaphore.Acquire(executionContext, 1); acquireError != nil {
			for entityIndex := batchStart; entityIndex < len(entities); entityIndex++ {
				collectedResults[entityIndex] = failedResultForEntity(strategy, entities[entityIndex], fmt.Sprintf(schedulerAcquireFailureTemplate, acquireError))
			}
			break
		}

		batchWaitGroup.Add(1)
		go func(currentBatchIndex int, currentBatchStart int, currentBatchEnd int) {
			defer batchWaitGroup.Done()
			defer batchSemaphore.Release(1)

			logger.Debug(
				batchStartedMessageConstant,
				zap.String(logFieldSchedulerEntityKindConstant, string(strategy.Kind())),
				zap.Int(logFieldBatchIndexConstant, currentBatchIndex),
				zap.Int(logFieldBatchEntityCountConstant, currentBatchEnd-currentBatchStart),
			)

			runBatch(executionContext, strategy, entities, collectedResults, currentBatchStart, currentBatchEnd)

			logger.Debug(
				batchCompletedMessageConstant,
				zap.String(logFieldSchedulerEntityKindConstant, string(strategy.Kind())),
				zap.Int(logFieldBatchIndexConstant, currentBatchIndex),
			)
		}(batchIndex, batchStart, batchEnd)

		batchIndex++
	}

	batchWaitGroup.Wait()
	return collectedResults
}

// runBatch processes one contiguous slice of entities concurrently, writing
// each entity's result into its own index of collectedResults.
func runBatch[Entity any](
	executionContext context.Context,
	strategy Strategy[Entity],
	entities []Entity,
	collectedResults []Result,
	batchStart int,
	batchEnd int,
) {
	defer func() {
		if recoveredPanic := recover(); recoveredPanic != nil {
			failureMessage := fmt.Sprintf(batchPanicTemplateConstant, recoveredPanic)
			for entityIndex := batchStart; entityIndex < batchEnd; entityIndex++ {
				if len(collectedResults[entityIndex].Status) == 0 {
					collectedResults[entityIndex] = failedResultForEntity(strategy, entities[entityIndex], failureMessage)
				}
			}
		}
	}()

	entityWaitGroup := sync.WaitGroup{}
	for entityIndex := batchStart; entityIndex < batchEnd; entityIndex++ {
		entityWaitGroup.Add(1)
		go func(currentEntityIndex int) {
			defer entityWaitGroup.Done()
			defer func() {
				if recoveredPanic := recover(); recoveredPanic != nil {
					collectedResults[currentEntityIndex] = failedResultForEntity(strategy, entities[currentEntityIndex], fmt.Sprintf(entityPanicTemplateConstant, recoveredPanic))
				}
			}()

			collectedResults[currentEntityIndex] = strategy.MigrateOne(executionContext, entities[currentEntityIndex])
		}(entityIndex)
	}
	entityWaitGroup.Wait()
}

func failedResultForEntity[Entity any](strategy Strategy[Entity], entity Entity, failureMessage string) Result {
	resultTimestamp := time.Now().UTC()
	return Result{
		EntityKind:   strategy.Kind(),
		EntityName:   strategy.EntityIdentifier(entity),
		Status:       StatusFailed,
		Success:      false,
		StartedAt:    resultTimestamp,
		CompletedAt:  resultTimestamp,
		ErrorMessage: failureMessage,
	}
}
