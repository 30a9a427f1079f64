package intent

import "testing"

func TestStaticReplyGreetings(t *testing.T) {
	cases := []string{"hi", "Hello", "hey there", "good morning team"}
	for _, in := range cases {
		if got := StaticReply(in); got == "" {
			t.Fatalf("expected greeting reply for %q", in)
		}
	}
}

func TestStaticReplyPassesThroughQuestions(t *testing.T) {
	cases := []string{"show me open orders", "ok show me orders", "highest balance item"}
	for _, in := range cases {
		if got := StaticReply(in); got != "" {
			t.Fatalf("expected no static reply for %q, got %q", in, got)
		}
	}
}

func TestStaticReplyGratitudeAndClosing(t *testing.T) {
	if got := StaticReply("thanks a lot"); got != gratitudeReply {
		t.Fatalf("unexpected gratitude reply: %q", got)
	}
	if got := StaticReply("ok"); got != ackReply {
		t.Fatalf("unexpected ack reply: %q", got)
	}
	if got := StaticReply("bye for now"); got != closingReply {
		t.Fatalf("unexpected closing reply: %q", got)
	}
}

func TestNeedsContext(t *testing.T) {
	cases := map[string]bool{
		"show me the same for Bangalore":                  true,
		"and this item?":                                  true,
		"top 5":                                           true, // short follow-up
		"show me all open orders for customer Acme Corp":  false,
		"list pending shipments due next week for Mumbai": false,
	}
	for in, want := range cases {
		if got := NeedsContext(in); got != want {
			t.Fatalf("NeedsContext(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsBusinessQuery(t *testing.T) {
	if !IsBusinessQuery("show open orders for Acme") {
		t.Fatal("order question should route to SQL")
	}
	if IsBusinessQuery("help") {
		t.Fatal("help must route to chat")
	}
	if IsBusinessQuery("tell me a joke") {
		t.Fatal("small talk must route to chat")
	}
}

func TestExtractItemNo(t *testing.T) {
	if got := ExtractItemNo("what is the balance for item AB-1020?"); got != "AB-1020" {
		t.Fatalf("unexpected item token: %q", got)
	}
	if got := ExtractItemNo("orders for THE-COMPANY"); got != "THE-COMPANY" {
		// Hyphenated tokens with letters only still qualify unless blacklisted whole.
		t.Fatalf("unexpected item token: %q", got)
	}
	if got := ExtractItemNo("show me everything"); got != "" {
		t.Fatalf("expected no item token, got %q", got)
	}
}

func TestExtractItemFromSQL(t *testing.T) {
	sql := "SELECT * FROM slspurcinv.v_open_order WHERE item_no ILIKE '%ab-1020%' LIMIT 10;"
	if got := ExtractItemFromSQL(sql); got != "AB-1020" {
		t.Fatalf("unexpected item from sql: %q", got)
	}
	if got := ExtractItemFromSQL("SELECT 1"); got != "" {
		t.Fatalf("expected empty item, got %q", got)
	}
}
