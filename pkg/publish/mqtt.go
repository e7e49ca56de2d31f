// Package publish pushes the selected plan to MQTT so the host automation
// platform can actuate the inverter and render dashboards. Publishing is
// optional; with no broker configured every method is a no-op.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/levenlabs/go-lflag"

	"github.com/gridhelm/gridhelm/pkg/log"
	"github.com/gridhelm/gridhelm/pkg/types"
)

const connectTimeout = 10 * time.Second

var baseTopicRegexp = regexp.MustCompile(`^[a-z0-9_]+(/[a-z0-9_]+)*$`)

// CheckTopic validates a base topic. Slashes separate levels; wildcards and
// empty levels are rejected.
func CheckTopic(baseTopic string) error {
	if !baseTopicRegexp.MatchString(baseTopic) {
		return fmt.Errorf("invalid mqtt base topic: %q", baseTopic)
	}
	return nil
}

// Publisher publishes plans and pass status to an MQTT broker. A nil
// Publisher is valid and publishes nothing.
type Publisher struct {
	client    mqtt.Client
	baseTopic string
}

// Configured sets up the publisher based on flags. It returns nil when no
// broker is configured.
func Configured() *Publisher {
	broker := lflag.String("mqtt-broker", "", "MQTT broker address (host:port), empty disables publishing")
	username := lflag.String("mqtt-username", "", "MQTT username")
	password := lflag.String("mqtt-password", "", "MQTT password")
	baseTopic := lflag.String("mqtt-base-topic", "gridhelm", "Base topic for plan and status messages")

	p := &Publisher{}

	lflag.Do(func() {
		if *broker == "" {
			return
		}
		if err := CheckTopic(*baseTopic); err != nil {
			panic(err.Error())
		}
		opts := mqtt.NewClientOptions()
		opts.AddBroker("tcp://" + *broker)
		opts.SetClientID(fmt.Sprintf("gridhelm_%d", rand.IntN(1000)))
		if *username != "" && *password != "" {
			opts.SetUsername(*username)
			opts.SetPassword(*password)
		}
		opts.WillEnabled = true
		opts.WillTopic = *baseTopic + "/bridge/state"
		opts.WillPayload = []byte("offline")
		opts.WillRetained = true

		p.client = mqtt.NewClient(opts)
		p.baseTopic = *baseTopic
	})

	return p
}

// Connect establishes the broker connection and announces the bridge online.
func (p *Publisher) Connect(ctx context.Context) error {
	if p == nil || p.client == nil {
		return nil
	}
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out connecting to mqtt broker")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	if err := p.publish(p.baseTopic+"/bridge/state", []byte("online")); err != nil {
		return err
	}
	log.Ctx(ctx).InfoContext(ctx, "connected to mqtt broker", slog.String("baseTopic", p.baseTopic))
	return nil
}

// Close announces the bridge offline and disconnects.
func (p *Publisher) Close() {
	if p == nil || p.client == nil {
		return
	}
	// best effort, the will covers an unclean exit
	_ = p.publish(p.baseTopic+"/bridge/state", []byte("offline"))
	p.client.Disconnect(250)
}

// PublishPlan publishes the plan and its status as retained messages so
// late subscribers see the current schedule immediately.
func (p *Publisher) PublishPlan(ctx context.Context, plan types.Plan) error {
	if p == nil || p.client == nil {
		return nil
	}
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := p.publish(p.baseTopic+"/plan", payload); err != nil {
		return err
	}

	status, err := json.Marshal(map[string]string{
		"status": string(plan.Status),
		"reason": plan.StatusReason,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := p.publish(p.baseTopic+"/status", status); err != nil {
		return err
	}
	log.Ctx(ctx).DebugContext(ctx, "published plan",
		slog.String("topic", p.baseTopic+"/plan"),
		slog.Int("windows", len(plan.Windows)))
	return nil
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}
