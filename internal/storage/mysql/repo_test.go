package mysql

import (
	"strings"
	"testing"
)

func TestGenresOf(t *testing.T) {
	g, err := genresOf([]byte(`["Drama","Crime"]`))
	if err != nil || strings.Join(g, ",") != "Drama,Crime" {
		t.Fatalf("genres: %v %v", g, err)
	}
	if g, err := genresOf(nil); err != nil || g != nil {
		t.Fatalf("NULL column: %v %v", g, err)
	}
	// valid JSON for the column type, wrong shape for the catalog
	for _, raw := range []string{`"Drama"`, `{"name":"Drama"}`, `[1,2]`} {
		if _, err := genresOf([]byte(raw)); err == nil {
			t.Fatalf("%s: expected decode error", raw)
		}
	}
}
