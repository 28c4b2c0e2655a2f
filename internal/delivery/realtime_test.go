package delivery_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/dynaerp/notify-engine/internal/delivery"
)

func TestRedisPublisher_Publish(t *testing.T) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.Subscribe(context.Background(), "notify:emp:E42")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := delivery.NewRedisPublisherWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = pub.Close() })

	event := delivery.Event{Event: delivery.EventNotificationNew, Scope: delivery.ScopeEmp, Key: "E42"}
	payload, _ := json.Marshal(event)
	if err := pub.Publish(context.Background(), "notify:emp:E42", payload); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got delivery.Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("unmarshal event: %v", err)
		}
		if got.Event != delivery.EventNotificationNew || got.Key != "E42" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestNewRedisPublisher_BadURL(t *testing.T) {
	if _, err := delivery.NewRedisPublisher("not-a-url"); err == nil {
		t.Fatal("expected error for malformed redis url")
	}
}
