package deploy

import (
	json "github.com/goccy/go-json"
)

// Task is the tag of a platform message.
type Task string

const (
	TaskDeploy  Task = "Deploy"
	TaskUnknown Task = ""
)

// Message is the JSON body published on the platform exchange.
type Message struct {
	Task   Task   `json:"task"`
	Sender string `json:"sender"`
}

// ParseMessage decodes a delivery body. Tags other than Deploy collapse to TaskUnknown.
func ParseMessage(body []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, err
	}
	if msg.Task != TaskDeploy {
		msg.Task = TaskUnknown
	}
	return msg, nil
}
