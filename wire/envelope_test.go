package wire

import (
	"bytes"
	"testing"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello compact block")
	if err := WriteMessage(&buf, 0xd9b4bef9, "version", payload); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	msg, rerr := ReadMessage(&buf, 0xd9b4bef9)
	if rerr != nil {
		t.Fatalf("ReadMessage: %v", rerr)
	}
	if msg.Command != "version" {
		t.Fatalf("expected command %q, got %q", "version", msg.Command)
	}
	if !bytes.Equal(msg.Payload, payload) {
		t.Fatalf("expected payload %q, got %q", payload, msg.Payload)
	}
}

func TestWriteReadMessageEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, 1, "ping", nil); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	msg, rerr := ReadMessage(&buf, 1)
	if rerr != nil {
		t.Fatalf("ReadMessage: %v", rerr)
	}
	if len(msg.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(msg.Payload))
	}
}

func TestReadMessageMagicMismatchDisconnects(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, 1, "ping", nil); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	_, rerr := ReadMessage(&buf, 2)
	if rerr == nil {
		t.Fatal("expected a magic-mismatch error")
	}
	if !rerr.Disconnect {
		t.Fatal("expected magic mismatch to set Disconnect")
	}
	if rerr.BanScoreDelta != 0 {
		t.Fatalf("expected zero ban score delta for magic mismatch, got %d", rerr.BanScoreDelta)
	}
}

func TestReadMessageChecksumMismatchDropsWithoutDisconnect(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, 1, "ping", []byte("payload")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	corrupted := buf.Bytes()
	// Flip a payload byte without touching the header's length/checksum.
	corrupted[TransportPrefixBytes] ^= 0xff

	_, rerr := ReadMessage(bytes.NewReader(corrupted), 1)
	if rerr == nil {
		t.Fatal("expected a checksum-mismatch error")
	}
	if rerr.Disconnect {
		t.Fatal("expected checksum mismatch to not disconnect")
	}
	if rerr.BanScoreDelta != 10 {
		t.Fatalf("expected ban score delta 10, got %d", rerr.BanScoreDelta)
	}
}

func TestReadMessageTruncatedPayloadDisconnects(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, 1, "ping", []byte("payload")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
	truncated := buf.Bytes()[:TransportPrefixBytes+3]

	_, rerr := ReadMessage(bytes.NewReader(truncated), 1)
	if rerr == nil {
		t.Fatal("expected a truncation error")
	}
	if !rerr.Disconnect {
		t.Fatal("expected truncation to disconnect")
	}
	if rerr.BanScoreDelta != 20 {
		t.Fatalf("expected ban score delta 20, got %d", rerr.BanScoreDelta)
	}
}

func TestWriteMessageRejectsOversizedPayload(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMessage(&buf, 1, "block", make([]byte, MaxRelayMsgBytes+1))
	if err == nil {
		t.Fatal("expected an error for an oversized payload")
	}
}

func TestEncodeCommandRejectsTooLong(t *testing.T) {
	if _, err := encodeCommand("thiscommandnameistoolong"); err == nil {
		t.Fatal("expected an error for a too-long command")
	}
}
