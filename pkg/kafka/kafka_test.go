package kafka

import (
	"context"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/mynextmovies/pkg/config"
)

type sample struct {
	Title string `json:"title"`
	K     int    `json:"k"`
}

func TestEncodeDecodeJSON(t *testing.T) {
	msg, err := encode(Event{Key: "Avatar", Value: sample{Title: "Avatar", K: 10}})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(msg.Key) != "Avatar" {
		t.Errorf("key = %q", msg.Key)
	}
	got, err := DecodeJSON[sample](msg.Value)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.Title != "Avatar" || got.K != 10 {
		t.Errorf("decoded %+v", got)
	}
	if _, err := DecodeJSON[sample]([]byte("{")); err == nil {
		t.Error("expected error for truncated json")
	}
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	p := NewPublisher(config.KafkaConfig{}, "recommend-analytics")
	if _, ok := p.(Discard); !ok {
		t.Fatalf("publisher = %T, want Discard", p)
	}
	if err := p.Publish(context.Background(), Event{Key: "x", Value: 1}); err != nil {
		t.Errorf("Discard.Publish: %v", err)
	}
}
