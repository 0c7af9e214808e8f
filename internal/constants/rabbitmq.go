package constants

const ExchangeListing = "listing_exchange"

// Имена очередей
const (
	QueueInboxNotifications = "inbox_notifications"
	QueueInboxRetryWait     = "inbox_notifications_retry_wait"
)

// Ключи маршрутизации
const (
	RoutingKeyInboxDeliver = "notify.inbox.deliver"
)

const (
	RetryExchangeInbox = "inbox_notifications_retry"
	FinalDLXExchange   = "inbox_notifications_final_dlx"
	FinalDLQ           = "inbox_notifications_final_dlq"
	FinalDLQRoutingKey = "inbox.dlq.key"
)

// Контракт сообщения уведомления
const (
	EventTypeNotificationRequested    = "NotificationRequestedEvent"
	EventVersionNotificationRequested = "1.0.0"
)
