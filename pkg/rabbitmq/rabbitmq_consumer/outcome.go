package rabbitmq_consumer

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Outcome - что сделать с сообщением после обработчика
type Outcome int

const (
	OutcomeAck        Outcome = iota // обработано
	OutcomeRetry                     // Nack без requeue: уходит в retry-очередь с TTL
	OutcomeDeadLetter                // публикуем в финальный DLX и подтверждаем оригинал
	OutcomeDrop                      // Nack без requeue, ретраи выключены
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAck:
		return "ack"
	case OutcomeRetry:
		return "retry"
	case OutcomeDeadLetter:
		return "dead_letter"
	case OutcomeDrop:
		return "drop"
	}
	return "unknown"
}

// PermanentError - ошибка, которую бессмысленно повторять (битый JSON, невалидная запись)
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent помечает ошибку обработчика как неповторяемую
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Decide выбирает исход по ошибке обработчика и числу прошлых "смертей" сообщения
func Decide(handlerErr error, deaths int64, maxRetries int, retryEnabled bool) Outcome {
	if handlerErr == nil {
		return OutcomeAck
	}
	if !retryEnabled {
		return OutcomeDrop
	}
	var permanent *PermanentError
	if errors.As(handlerErr, &permanent) {
		return OutcomeDeadLetter
	}
	if deaths < int64(maxRetries) {
		return OutcomeRetry
	}
	return OutcomeDeadLetter
}

// DeathCount читает заголовок x-death и возвращает, сколько раз сообщение
// отклонялось именно из queueName
func DeathCount(headers amqp.Table, queueName string) int64 {
	if headers == nil {
		return 0
	}
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, death := range deaths {
		tbl, ok := death.(amqp.Table)
		if !ok {
			continue
		}
		if queue, ok := tbl["queue"].(string); !ok || queue != queueName {
			continue
		}
		switch count := tbl["count"].(type) {
		case int64:
			return count
		case int32:
			return int64(count)
		case int:
			return int64(count)
		}
	}
	return 0
}
