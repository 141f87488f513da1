package dto

import "time"

const (
	EventVideoCreated = "video.created"
	EventVideoUpdated = "video.updated"
)

// VideoEvent 是写入RabbitMQ的视频变更消息
type VideoEvent struct {
	EventID    string        `json:"event_id"`
	Type       string        `json:"type"`
	Video      VideoResponse `json:"video"`
	OccurredAt time.Time     `json:"occurred_at"`
}
