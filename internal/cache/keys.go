package cache

import "fmt"

// Key naming convention: railwatch:{resource}:{identifier}
//
// Patterns use wildcards for bulk invalidation, e.g. railwatch:session:*.

const (
	PrefixProducer = "railwatch:producer"
	PrefixConsumer = "railwatch:consumer"
	PrefixSession  = "railwatch:session"
)

// ProducerKey is the mirror key for a kiosk's presence entry
func ProducerKey(clientID string) string {
	return fmt.Sprintf("%s:%s", PrefixProducer, clientID)
}

// ConsumerKey is the mirror key for a monitor station's presence entry
func ConsumerKey(clientID string) string {
	return fmt.Sprintf("%s:%s", PrefixConsumer, clientID)
}

// SessionKey is the mirror key for the active session on a producer
func SessionKey(producerID string) string {
	return fmt.Sprintf("%s:%s", PrefixSession, producerID)
}

// ProducerPattern matches every mirrored producer entry
func ProducerPattern() string {
	return PrefixProducer + ":*"
}

// ConsumerPattern matches every mirrored consumer entry
func ConsumerPattern() string {
	return PrefixConsumer + ":*"
}

// SessionPattern matches every mirrored session
func SessionPattern() string {
	return PrefixSession + ":*"
}
