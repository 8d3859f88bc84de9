package config

import (
	"strings"
	"testing"
)

const validConfig = `# identity material
privkey = cce23408fda42b852fdd4bae99ed990dbe398182c1d743b3d630958af47dfd96
signkey = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeee"
`

func TestParseValid(t *testing.T) {
	f, err := Parse([]byte(validConfig))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.PrivKey[0] != 0xcc || f.PrivKey[31] != 0x96 {
		t.Fatalf("unexpected privkey: %x", f.PrivKey)
	}
	if f.SignKey[0] != 0x00 || f.SignKey[31] != 0xee {
		t.Fatalf("unexpected signkey: %x", f.SignKey)
	}
}

func TestParseMissingKey(t *testing.T) {
	_, err := Parse([]byte("privkey = cce23408fda42b852fdd4bae99ed990dbe398182c1d743b3d630958af47dfd96\n"))
	if err == nil {
		t.Fatal("expected error for missing signkey")
	}
}

func TestParseBadHexLength(t *testing.T) {
	_, err := Parse([]byte("privkey = aabb\nsignkey = cce23408fda42b852fdd4bae99ed990dbe398182c1d743b3d630958af47dfd96\n"))
	if err == nil {
		t.Fatal("expected error for short privkey")
	}
}

func TestParseUnknownKey(t *testing.T) {
	_, err := Parse([]byte("bogus = 1\n"))
	if err == nil || !strings.Contains(err.Error(), "unknown key") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
}

func TestDefaultPathShape(t *testing.T) {
	p, err := DefaultPath("tunnel-agent")
	if err != nil {
		t.Fatalf("default path: %v", err)
	}
	if !strings.Contains(p, "tunnel-agent") || !strings.HasSuffix(p, "config.toml") {
		t.Fatalf("unexpected path: %s", p)
	}
}
