package rabbitmq

import (
	"context"

	"github.com/streadway/amqp"
)

// Publisher 把一条消息投递到指定队列
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, body []byte) error
}

// InitRabbitMQ 初始化RabbitMQ连接
func InitRabbitMQ(url string) (*amqp.Connection, error) {
	return amqp.Dial(url)
}

// DeclareQueue 声明持久化队列，已存在则什么都不做（幂等）
func DeclareQueue(conn *amqp.Connection, queue string) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	return err
}

type amqpPublisher struct {
	conn *amqp.Connection
}

func NewPublisher(conn *amqp.Connection) Publisher {
	return &amqpPublisher{conn: conn}
}

// 每条消息用一个临时channel，消息之间互不影响
func (p *amqpPublisher) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.Publish(
		"",    // exchange: 默认交换机
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    messageID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
}
