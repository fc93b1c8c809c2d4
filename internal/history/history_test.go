package history

import "testing"

func TestTranscriptAppendAndEntries(t *testing.T) {
	tr := NewTranscript()
	other := NewTranscript()

	tr.AppendUser("hello")
	tr.AppendChatbot("hi")
	other.AppendUser("foo")

	got := tr.Entries()
	if len(got) != 2 || other.Len() != 1 {
		t.Fatalf("unexpected lengths: tr=%d other=%d", len(got), other.Len())
	}
	if got[0].Sender != SenderUser || got[0].Message != "hello" {
		t.Fatalf("unexpected [0]: %+v", got[0])
	}
	if got[1].Sender != SenderChatbot || got[1].Message != "hi" {
		t.Fatalf("unexpected [1]: %+v", got[1])
	}

	// Ensure copy semantics (modifying returned slice does not affect internal state)
	got[0] = Entry{Sender: SenderUser, Message: "mutated"}
	if tr.Entries()[0].Message != "hello" {
		t.Fatalf("internal state mutated via returned slice")
	}

	if tr.ID() == "" || tr.ID() == other.ID() {
		t.Fatalf("transcripts need distinct ids: %q %q", tr.ID(), other.ID())
	}
}
