// Copyright 2025 Find Partner, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// A generic Pub/Sub listener that hands each received message to a command
// chain. Messages are acknowledged only when the chain completes without
// errors; failed messages are redelivered under the subscription's retry
// policy.
package cloud

import (
	"context"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/findpartner/gcp-go-analysis/internal/core/cor"
)

// logger bridges listener log records into OpenTelemetry so they correlate
// with the message spans.
var logger = otelslog.NewLogger("github.com/findpartner/gcp-go-analysis/listener")

// PubSubListener binds one subscription to one processing command. Listeners
// outlive individual API requests, so they live with the cloud clients.
type PubSubListener struct {
	client       *pubsub.Client
	subscription *pubsub.Subscription
	command      cor.Command
}

// NewPubSubListener creates a listener for the given subscription ID. The
// command may be nil at construction and attached later once the workflow
// is assembled.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (*PubSubListener, error) {
	return &PubSubListener{
		client:       pubsubClient,
		subscription: pubsubClient.Subscription(subscriptionID),
		command:      command,
	}, nil
}

// SetCommand attaches the processing command. A command that is already set
// is never overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts receiving messages in a background goroutine. Canceling the
// context stops the listener.
func (m *PubSubListener) Listen(ctx context.Context) {
	logger.Info("listening", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("message-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-message")
			span.SetAttributes(attribute.String("msg", string(msg.Data)))

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for _, e := range chainCtx.GetErrors() {
					logger.Error("error executing chain", "error", e)
				}
				// No Ack and no Nack: let the ack deadline lapse so the
				// subscription's retry policy drives redelivery.
			}

			span.End()
		})

		if err != nil {
			logger.Error("error receiving data", "error", err)
		}
	}()
}
