package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrTopicMissing   = errors.New("channel topic is missing")
	ErrTopicMalformed = errors.New("channel topic does not end with a creator id")
)

var topicAnchor = regexp.MustCompile(`\((\d+)\)$`)

// FormatTopic renders the ticket channel topic. The trailing "(<id>)" is the creator
// anchor parsed back by CreatorFromTopic and must round-trip exactly.
func FormatTopic(creatorName string, creatorID snowflake.ID) string {
	return fmt.Sprintf("Ticket for %s (%s)", creatorName, creatorID.String())
}

// CreatorFromTopic extracts the creator id from a ticket channel topic.
func CreatorFromTopic(topic string) (snowflake.ID, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return 0, ErrTopicMissing
	}
	match := topicAnchor.FindStringSubmatch(topic)
	if match == nil {
		return 0, ErrTopicMalformed
	}
	id, err := snowflake.ParseString(match[1])
	if err != nil || id == 0 {
		return 0, ErrTopicMalformed
	}
	return id, nil
}
