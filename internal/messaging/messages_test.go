package messaging

import (
	"encoding/json"
	"testing"
)

func TestCommandWireFormat(t *testing.T) {
	payload := []byte(`{"x_vel":0.1,"y_vel":-0.2,"theta_vel":45}`)

	var cmd BaseCommand
	if err := json.Unmarshal(payload, &cmd); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if cmd.XVel != 0.1 || cmd.YVel != -0.2 || cmd.ThetaVel != 45 {
		t.Errorf("decoded command = %+v", cmd)
	}
}

func TestActuationMirrorsCommandShape(t *testing.T) {
	cmd := BaseCommand{XVel: 0.1, YVel: 0.2, ThetaVel: 30}
	act := ActuationFrom(cmd)

	got, err := json.Marshal(act)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// The actuation payload uses the same field names as the command so
	// downstream consumers can share a decoder.
	var round BaseCommand
	if err := json.Unmarshal(got, &round); err != nil {
		t.Fatalf("unmarshal into command shape: %v", err)
	}
	if round != cmd {
		t.Errorf("actuation round-trip = %+v, want %+v", round, cmd)
	}
}

func TestHealthSerializedByName(t *testing.T) {
	ok, err := json.Marshal(HealthOk)
	if err != nil {
		t.Fatal(err)
	}
	if string(ok) != `"ok"` {
		t.Errorf("HealthOk marshals to %s", ok)
	}

	stale, err := json.Marshal(HealthCmdStale)
	if err != nil {
		t.Fatal(err)
	}
	if string(stale) != `"cmd_stale"` {
		t.Errorf("HealthCmdStale marshals to %s", stale)
	}
}

func TestChannelTransport(t *testing.T) {
	tr := NewChannelTransport(4)
	defer tr.Close()

	tr.SendCommand([]byte(`{"x_vel":1}`))
	select {
	case payload := <-tr.Commands():
		if string(payload) != `{"x_vel":1}` {
			t.Errorf("payload = %s", payload)
		}
	default:
		t.Fatal("command not delivered")
	}

	if err := tr.PublishActuation([]byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := tr.PublishHealth([]byte("h")); err != nil {
		t.Fatal(err)
	}
	if n := len(tr.Actuations()); n != 1 {
		t.Errorf("actuations = %d, want 1", n)
	}
	if n := len(tr.Healths()); n != 1 {
		t.Errorf("healths = %d, want 1", n)
	}
}

func TestChannelTransportCloseIdempotent(t *testing.T) {
	tr := NewChannelTransport(1)
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
}
