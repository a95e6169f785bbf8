// README: CLI tests: subcommand wiring, the sweep exit path and parser output.
package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dishbee/internal/kv"
	"dishbee/internal/modules/ocr"
	"dishbee/internal/modules/order"
)

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "sweep", "ocr"}, names)
}

func saved(t *testing.T, s *order.Store, id string, created time.Time) {
	t.Helper()
	o := &order.Order{
		ID:          id,
		Source:      order.SourceStorefront,
		DisplayName: id,
		Vendors:     []string{"Leckerolls"},
		Customer:    order.Customer{Name: "Max Mustermann", AddressFull: "Innstraße 5, 94032 Passau"},
		Items:       map[string][]string{"Leckerolls": {"1 x Zimtschnecke"}},
		CreatedAt:   created,
		Refs:        order.MessageRefs{DispatchPrimary: 1},
	}
	o.SetStatus(order.StatusNew, created)
	require.NoError(t, s.Save(context.Background(), o))
}

func TestSweepStore(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, loc)

	backend := kv.NewMemoryStore()
	s := order.NewStore(backend, 7*24*time.Hour, loc, nil)
	saved(t, s, "1001", now.Add(-time.Hour))
	saved(t, s, "1002", now.AddDate(0, 0, -1))
	saved(t, s, "1003", now.AddDate(0, 0, -3))

	var out bytes.Buffer
	require.NoError(t, sweepStore(ctx, &out, s, 1, now, zap.NewNop()))
	assert.Equal(t, "removed 1 orders\n", out.String())

	left, err := backend.Scan(ctx, "order:")
	require.NoError(t, err)
	assert.Len(t, left, 2)
	assert.NotContains(t, left, order.Key("1003"))
}

func TestSweepCommand(t *testing.T) {
	t.Setenv("PERSISTENCE_URL", "memory://")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"sweep", "--days", "2"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Equal(t, "removed 0 orders\n", out.String())
}

func TestSweepCommandFailsOnBadPersistence(t *testing.T) {
	t.Setenv("PERSISTENCE_URL", "ftp://nowhere")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"sweep"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestOCRCommandText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "order.txt")
	require.NoError(t, os.WriteFile(path, []byte(`#VCJ34V CR-47
Heute 18:30
3 Produkte
Max Mustermann
12 Musterstraße, 94032 Passau
📞 0151 1234567
📝 Bitte zweimal klingeln
Total 24,50 €`), 0o600))

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"ocr", "--text", path})
	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, out.String(), `"OrderCode": "47"`)
	assert.Contains(t, out.String(), `"Zip": "94032"`)
}

func TestPrintParsedTaxonomy(t *testing.T) {
	var out bytes.Buffer
	err := printParsed(&out, nil, &ocr.ParseError{Code: ocr.CodeNoteCollapsed, Reason: "note ends with …"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "NOTE_COLLAPSED")
	assert.Contains(t, out.String(), ocr.Instruction(ocr.CodeNoteCollapsed))
}
