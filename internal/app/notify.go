// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const publishTimeout = 2 * time.Second

// MQTTNotifier publishes run reports and busy/idle status to a broker.
type MQTTNotifier struct {
	client           mqtt.Client
	topicCalibration string
	topicStatus      string
}

// MQTTOptions configures NewMQTTNotifier.
type MQTTOptions struct {
	Broker           string
	ClientID         string
	TopicCalibration string
	TopicStatus      string
}

func (o MQTTOptions) clientOptions() *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	if o.TopicStatus != "" {
		opts.SetWill(o.TopicStatus, "offline", 1, true)
	}
	return opts
}

// NewMQTTNotifier connects to the broker and announces "idle".
func NewMQTTNotifier(o MQTTOptions) (*MQTTNotifier, error) {
	client := mqtt.NewClient(o.clientOptions())
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", o.Broker)
	} else if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", o.Broker, err)
	} else {
		log.Printf("mqtt: connected to %s as %s", o.Broker, o.ClientID)
	}
	return newMQTTNotifier(client, o), nil
}

func newMQTTNotifier(client mqtt.Client, o MQTTOptions) *MQTTNotifier {
	n := &MQTTNotifier{client: client, topicCalibration: o.TopicCalibration, topicStatus: o.TopicStatus}
	n.Status("idle")
	return n
}

// Calibrated publishes rep as JSON on the calibration topic.
func (n *MQTTNotifier) Calibrated(rep Report) {
	payload, err := json.Marshal(rep)
	if err != nil {
		log.Printf("mqtt: marshal report: %v", err)
		return
	}
	n.publish(n.topicCalibration, payload, false)
}

// Status publishes a retained state string on the status topic.
func (n *MQTTNotifier) Status(state string) {
	if n.topicStatus == "" {
		return
	}
	n.publish(n.topicStatus, []byte(state), true)
}

func (n *MQTTNotifier) publish(topic string, payload []byte, retained bool) {
	token := n.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Printf("mqtt: publish to %s timed out", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("mqtt: publish to %s: %v", topic, err)
	}
}

// Close publishes "offline" and disconnects.
func (n *MQTTNotifier) Close() {
	n.Status("offline")
	n.client.Disconnect(250)
}
