package rabbitmq

// TaskKind — тип задачи; совпадает с ключом маршрутизации.
type TaskKind string

// TaskCourseUpdated — проверка давности обновления курса и рассылка подписчикам.
const TaskCourseUpdated TaskKind = "course.updated"

// CourseUpdatedQueue — очередь задач TaskCourseUpdated.
const CourseUpdatedQueue = "notifications.course_updated"

// QueueConfig связывает очередь с ключом маршрутизации.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди, которые обслуживает notifier.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: CourseUpdatedQueue, RoutingKey: string(TaskCourseUpdated)},
	}
}
