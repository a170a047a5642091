package provider

import (
	"strings"
	"testing"
)

func TestParseCompletion_Envelope(t *testing.T) {
	reply, proposed := parseCompletion(`{"reply":"done","proposed_content":"new doc"}`)
	if reply != "done" {
		t.Fatalf("reply = %q", reply)
	}
	if proposed == nil || *proposed != "new doc" {
		t.Fatalf("proposed = %v", proposed)
	}
}

func TestParseCompletion_NullProposal(t *testing.T) {
	reply, proposed := parseCompletion(`{"reply":"just chatting","proposed_content":null}`)
	if reply != "just chatting" || proposed != nil {
		t.Fatalf("reply=%q proposed=%v", reply, proposed)
	}
}

func TestParseCompletion_BlankProposalTreatedAsNone(t *testing.T) {
	_, proposed := parseCompletion(`{"reply":"ok","proposed_content":"   "}`)
	if proposed != nil {
		t.Fatalf("blank proposal should be dropped, got %q", *proposed)
	}
}

func TestParseCompletion_CodeFences(t *testing.T) {
	raw := "```json\n{\"reply\":\"fenced\",\"proposed_content\":\"body\"}\n```"
	reply, proposed := parseCompletion(raw)
	if reply != "fenced" || proposed == nil || *proposed != "body" {
		t.Fatalf("fenced envelope not parsed: reply=%q proposed=%v", reply, proposed)
	}

	raw = "```\n{\"reply\":\"plain fence\",\"proposed_content\":null}\n```"
	reply, proposed = parseCompletion(raw)
	if reply != "plain fence" || proposed != nil {
		t.Fatalf("plain fence not parsed: reply=%q", reply)
	}
}

func TestParseCompletion_NonEnvelopeFallsBack(t *testing.T) {
	reply, proposed := parseCompletion("  Sure, I can help with that.  ")
	if reply != "Sure, I can help with that." || proposed != nil {
		t.Fatalf("fallback broken: reply=%q proposed=%v", reply, proposed)
	}
}

func TestUserPrompt_ContainsDocumentAndInstruction(t *testing.T) {
	p := userPrompt(&Request{CurrentContent: "THE DOC", Instruction: "THE ASK"})
	if !strings.Contains(p, "THE DOC") || !strings.Contains(p, "THE ASK") {
		t.Fatalf("prompt missing parts: %q", p)
	}
}
