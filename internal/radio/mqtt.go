package radio

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// MQTTSource receives raw LoRa payloads republished by a gateway on an MQTT topic.
type MQTTSource struct {
	*Queue
	topic string
	qos   byte
}

func NewMQTTSource(topic string, qos byte, capacity int) *MQTTSource {
	return &MQTTSource{Queue: NewQueue(capacity), topic: topic, qos: qos}
}

func (s *MQTTSource) Handlers() []func() (string, byte, func(mqtt.Client, mqtt.Message)) {
	return []func() (string, byte, func(mqtt.Client, mqtt.Message)){
		func() (string, byte, func(mqtt.Client, mqtt.Message)) {
			return s.topic, s.qos, s.OnPacket
		},
	}
}

func (s *MQTTSource) OnPacket(_ mqtt.Client, message mqtt.Message) {
	payload := message.Payload()
	if len(payload) == 0 {
		log.Debug().Str("topic", message.Topic()).Msg("radio: empty mqtt packet ignored")
		return
	}
	s.Push(payload)
	log.Debug().
		Str("topic", message.Topic()).
		Int("size", len(payload)).
		Msg("radio: packet queued")
}

// Subscribe registers every handler on c. It is meant to run from the
// client's on-connect hook so subscriptions survive broker reconnects.
func Subscribe(c mqtt.Client, handlers []func() (string, byte, func(mqtt.Client, mqtt.Message))) []string {
	topics := []string{}
	for _, handle := range handlers {
		topic, qos, topicHandle := handle()
		if token := c.Subscribe(topic, qos, topicHandle); token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", topic).Msg("mqtt: failed to subscribe topic")
			continue
		}
		topics = append(topics, topic)
	}
	log.Info().Strs("topics", topics).Msg("mqtt: topics subscribed")
	return topics
}
