package graphservice

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/starford/vaultgraph/internal/apperr"
	"github.com/starford/vaultgraph/internal/engine"
	"github.com/starford/vaultgraph/internal/index"
	"github.com/starford/vaultgraph/internal/render"
	"github.com/starford/vaultgraph/internal/testutil"
)

type fakeSearcher struct {
	query string
	limit int
}

func (f *fakeSearcher) Search(query string, limit int) ([]index.SearchResult, error) {
	f.query, f.limit = query, limit
	return []index.SearchResult{{Path: "A.md", Label: "A"}}, nil
}

func newService(t *testing.T, search Searcher) *Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	_, store := testutil.TestVault(t, map[string]string{
		"A.md": "---\ntags: [x]\n---\n[[B]]",
		"B.md": "",
	})
	e := engine.New(engine.Options{Provider: store, Settings: engine.DefaultSettings(), Logger: logger})
	loop := engine.NewLoop(e, 60, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	deadline := time.Now().Add(5 * time.Second)
	for loop.Snapshot().Version == 0 {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for initial rebuild")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return NewService(loop, search)
}

func TestService_Queries(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	if st := svc.Stats(ctx); st.Nodes != 2 || st.Edges != 1 {
		t.Errorf("stats = %+v", st)
	}
	node, nbrs, err := svc.Neighbors(ctx, "b")
	if err != nil || node.Label != "B" || len(nbrs) != 1 || nbrs[0].Label != "A" {
		t.Errorf("neighbors = %+v %+v %v", node, nbrs, err)
	}
	if _, _, err := svc.Neighbors(ctx, "zzz"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	found, err := svc.Find(ctx, "a")
	if err != nil || len(found) != 1 || found[0].Label != "A" {
		t.Errorf("find = %+v, %v", found, err)
	}
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	if _, err := newService(t, nil).Search(ctx, "x", 0); !errors.Is(err, apperr.ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}

	fake := &fakeSearcher{}
	svc := newService(t, fake)
	res, err := svc.Search(ctx, "needle", 0)
	if err != nil || len(res) != 1 {
		t.Fatalf("search = %+v, %v", res, err)
	}
	if fake.query != "needle" || fake.limit != DefaultSearchLimit {
		t.Errorf("searcher got %q/%d", fake.query, fake.limit)
	}
	if _, err := svc.Search(ctx, "", 5); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("empty query err = %v", err)
	}
}

func TestService_Settings(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	f := engine.DefaultSettings().Filters
	f.Tag = "x"
	if err := svc.SetFilters(ctx, f); err != nil {
		t.Fatal(err)
	}
	p := engine.DefaultSettings().Forces
	p.Center = 0.5
	if err := svc.SetForces(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetDisplay(ctx, Display{TagNodes: true}); err != nil {
		t.Fatal(err)
	}

	v, err := svc.Settings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v.Filters.Tag != "x" || v.Forces.Center != 0.5 || !v.Display.TagNodes {
		t.Errorf("settings = %+v", v)
	}
	snap := svc.Snapshot(ctx)
	if snap.Stats.Tags != 1 {
		t.Errorf("tag nodes = %d, want 1", snap.Stats.Tags)
	}
	for _, n := range snap.Nodes {
		if n.Label == "B" && n.Visible {
			t.Error("B has no tag x and should be hidden")
		}
	}
}

func TestService_Render(t *testing.T) {
	svc := newService(t, nil)
	ctx := context.Background()

	data, err := svc.Render(ctx, render.FormatSVG, 100, 80)
	if err != nil || !bytes.Contains(data, []byte("<svg")) {
		t.Errorf("render = %d bytes, %v", len(data), err)
	}
	if _, err := svc.Render(ctx, render.FormatPNG, 0, 80); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("zero width err = %v", err)
	}
}
