// Package mqtt connects the bot to the PancyStudios broker. It publishes
// moderation events and runs request/response exchanges with other services,
// such as the target server scraper.
package mqtt

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyGuard/pkg/events"
	"github.com/PancyStudios/PancyGuard/pkg/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	requestPrefix  = "pancy/request/"
	responsePrefix = "pancy/response/"

	// DefaultRequestTimeout bounds Request when ctx has no deadline
	DefaultRequestTimeout = 15 * time.Second
)

// MqttRequest represents an MQTT request message
type MqttRequest struct {
	CorrelationID string      `json:"correlationId"`
	Payload       interface{} `json:"payload,omitempty"`
}

// MqttResponse represents an MQTT response message
type MqttResponse struct {
	CorrelationID string          `json:"correlationId"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error,omitempty"`
}

// MqttCommunicator handles MQTT communication
type MqttCommunicator struct {
	client  mqtt.Client
	mu      sync.Mutex
	pending map[string]chan MqttResponse
}

var _ events.Publisher = (*MqttCommunicator)(nil)

var (
	communicator *MqttCommunicator
	once         sync.Once
)

// Init initializes the global MQTT communicator
func Init(host, port, username, password, clientID string) *MqttCommunicator {
	once.Do(func() {
		communicator = NewMqttCommunicator(host, port, username, password, clientID)
	})
	return communicator
}

// Get returns the global MQTT communicator, nil when MQTT is disabled
func Get() *MqttCommunicator {
	return communicator
}

// NewMqttCommunicator creates a new MQTT communicator
func NewMqttCommunicator(host, port, username, password, clientID string) *MqttCommunicator {
	mc := &MqttCommunicator{pending: make(map[string]chan MqttResponse)}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
			// subscriptions do not survive a clean reconnect
			mc.subscribeResponses()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	mc.client = mqtt.NewClient(opts)

	token := mc.client.Connect()
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}

	return mc
}

// subscribeResponses routes every response to the request waiting for it
func (mc *MqttCommunicator) subscribeResponses() {
	token := mc.client.Subscribe(responsePrefix+"#", 0, func(c mqtt.Client, msg mqtt.Message) {
		var response MqttResponse
		if err := json.Unmarshal(msg.Payload(), &response); err != nil {
			logger.Warn(fmt.Sprintf("Respuesta MQTT inválida en %s: %v", msg.Topic(), err), "MQTT")
			return
		}
		mc.deliver(response)
	})
	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error suscribiendo a respuestas: %v", token.Error()), "MQTT")
	}
}

func (mc *MqttCommunicator) deliver(response MqttResponse) {
	mc.mu.Lock()
	ch, ok := mc.pending[response.CorrelationID]
	delete(mc.pending, response.CorrelationID)
	mc.mu.Unlock()
	if ok {
		ch <- response
	}
}

// Destroy closes the MQTT connection
func (mc *MqttCommunicator) Destroy() {
	if mc.client != nil && mc.client.IsConnected() {
		mc.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	} else {
		logger.Warn("El cliente MQTT no estaba conectado, no se necesita cerrar.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (mc *MqttCommunicator) IsConnected() bool {
	return mc != nil && mc.client != nil && mc.client.IsConnected()
}

// Publish sends payload as JSON to a topic
func (mc *MqttCommunicator) Publish(ctx context.Context, topic string, payload interface{}) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := mc.client.Publish(topic, 0, false, jsonData)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request publishes payload on pancy/request/{topic} and decodes the matching
// response into dst.
func (mc *MqttCommunicator) Request(ctx context.Context, topic string, payload, dst interface{}) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultRequestTimeout)
		defer cancel()
	}

	correlationID := uuid.New().String()
	responseChan := make(chan MqttResponse, 1)

	mc.mu.Lock()
	mc.pending[correlationID] = responseChan
	mc.mu.Unlock()
	defer func() {
		mc.mu.Lock()
		delete(mc.pending, correlationID)
		mc.mu.Unlock()
	}()

	request := MqttRequest{CorrelationID: correlationID, Payload: payload}
	if err := mc.Publish(ctx, requestPrefix+topic, request); err != nil {
		return err
	}

	select {
	case response := <-responseChan:
		if response.Error != "" {
			return fmt.Errorf("%s", response.Error)
		}
		if dst == nil || len(response.Data) == 0 {
			return nil
		}
		return json.Unmarshal(response.Data, dst)
	case <-ctx.Done():
		return fmt.Errorf("la petición a '%s' ha expirado (timeout): %w", topic, ctx.Err())
	}
}

// RequestHandler answers a request received on a topic
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// On registers a handler for a request topic
func (mc *MqttCommunicator) On(requestTopic string, callback RequestHandler) {
	topic := requestPrefix + requestTopic

	token := mc.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		var request MqttRequest
		if err := json.Unmarshal(msg.Payload(), &request); err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}

		actualTopic := strings.TrimPrefix(msg.Topic(), requestPrefix)
		responseTopic := fmt.Sprintf("%s%s/%s", responsePrefix, actualTopic, request.CorrelationID)

		payloadMap := make(map[string]interface{})
		if pm, ok := request.Payload.(map[string]interface{}); ok {
			payloadMap = pm
		}
		payloadMap["_topic"] = actualTopic

		response := MqttResponse{CorrelationID: request.CorrelationID}
		data, err := callback(payloadMap)
		if err != nil {
			response.Error = err.Error()
		} else if response.Data, err = json.Marshal(data); err != nil {
			response.Error = err.Error()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Publish(ctx, responseTopic, response); err != nil {
			logger.Warn(fmt.Sprintf("No se pudo responder en %s: %v", responseTopic, err), "MQTT")
		}
	})

	if token.Wait() && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, token.Error()), "MQTT")
	}
}
