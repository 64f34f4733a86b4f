package main

import "testing"

func TestCheck(t *testing.T) {
	pkgs := []packageInfo{
		{ImportPath: module + "/internal/net/proto", Imports: []string{"encoding/binary", module + "/internal/attribute"}},
		{ImportPath: module + "/internal/master", Imports: []string{"github.com/gorilla/websocket"}},
		{ImportPath: module + "/internal/attribute", Imports: []string{module + "/logging"}},
		{ImportPath: module + "/internal/net", Imports: []string{"github.com/gin-gonic/gin", module + "/internal/master"}},
	}
	got := check(pkgs)
	want := []string{
		module + "/internal/attribute -> " + module + "/logging",
		module + "/internal/master -> github.com/gorilla/websocket",
	}
	if len(got) != len(want) {
		t.Fatalf("violations = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("violation %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestWithinMatchesWholeSegments(t *testing.T) {
	if within(module+"/internal/netx", module+"/internal/net") {
		t.Fatalf("prefix match crossed a path segment")
	}
	if !within(module+"/internal/net/proto", module+"/internal/net/proto") {
		t.Fatalf("package should be within itself")
	}
}
