package common

const (
	RedisStreamSchedulerTaskExecution = "schedule.task.execution"
	RedisStreamStockIndicator         = "stock.indicator"
	RedisStreamStockReport            = "stock.report"

	RedisStreamGroup    = "analyzer-group"
	RedisStreamConsumer = "analyzer-consumer"
)
