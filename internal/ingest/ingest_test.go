package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/fmtrends/internal/schema"
	"github.com/freeeve/fmtrends/internal/table"
)

var testSchema = schema.Schema{"Name", "Position", "Current Ability"}

func writeSnapshot(t *testing.T, dir, name string, rows ...[3]string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("<html><body><table>\n<tr><th>Name</th><th>Position</th><th>CA</th></tr>\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>\n", r[0], r[1], r[2])
	}
	b.WriteString("</table></body></html>\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0644))
}

func newTestLoader(t *testing.T, dir string, buf *bytes.Buffer) *Loader {
	t.Helper()
	l, err := NewLoader(Config{
		Dir:       dir,
		Workers:   3,
		ChunkSize: 2,
		Logger:    zerolog.New(buf).Level(zerolog.DebugLevel),
	})
	require.NoError(t, err)
	return l
}

func TestLoadMergesByYear(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "players_2021.html", [3]string{"C", "ST (C)", "140"})
	writeSnapshot(t, dir, "players_2019.html",
		[3]string{"A", "GK", "120"},
		[3]string{"B", "D/M (RL)", "130"},
	)
	writeSnapshot(t, dir, "players_2020.html", [3]string{"D", "AM (C)", "135"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.html"), []byte("<p>no year</p>"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "players_2018.html"), 0755))

	var logs bytes.Buffer
	tbl, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
	require.NoError(t, err)

	assert.Equal(t, 4, tbl.Rows())
	assert.Equal(t, []string{"A", "B", "D", "C"}, tbl.Column("Name").Strings)
	assert.Equal(t, []int64{2019, 2019, 2020, 2021}, tbl.Column(table.YearColumn).Ints)
	assert.Equal(t, []int64{120, 130, 135, 140}, tbl.Column("Current Ability").Ints)

	pos := tbl.Column("Position")
	require.Equal(t, table.Tags, pos.Kind)
	assert.Equal(t, []string{"GK"}, pos.Tags[0])
	assert.Equal(t, []string{"D(R)", "D(L)", "M(R)", "M(L)"}, pos.Tags[1])

	assert.Equal(t, 3, strings.Count(logs.String(), `"message":"snapshot loaded"`))
	assert.Contains(t, logs.String(), `"file":"readme.html"`)
}

func TestLoadDeterministic(t *testing.T) {
	dir := t.TempDir()
	for y := 2010; y < 2022; y++ {
		writeSnapshot(t, dir, fmt.Sprintf("fm_%d.html", y), [3]string{fmt.Sprint("P", y), "GK", fmt.Sprint(y - 1900)})
	}

	var logs bytes.Buffer
	first, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
		require.NoError(t, err)
		assert.True(t, table.Equal(first, again), "run %d differs", i)
	}
}

func TestLoadPartialFailure(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "players_2019.html", [3]string{"A", "GK", "120"})
	writeSnapshot(t, dir, "players_2020.html", [3]string{"B", "GK", "121"}, [3]string{"C", "GK", "122"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "players_2021.html"), []byte("<html><body>corrupt"), 0644))

	var logs bytes.Buffer
	tbl, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
	require.NoError(t, err)

	assert.Equal(t, 3, tbl.Rows())
	assert.Equal(t, []int{2019, 2020}, tbl.Years())
	assert.Contains(t, logs.String(), `"message":"snapshot failed"`)
	assert.Contains(t, logs.String(), `"file":"players_2021.html"`)
}

func TestLoadSchemaMismatchIsPerFile(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "players_2019.html", [3]string{"A", "GK", "120"})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "players_2020.html"),
		[]byte("<table><tr><th>Name</th></tr><tr><td>B</td><td>GK</td></tr></table>"), 0644))

	var logs bytes.Buffer
	tbl, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Rows())
	assert.Contains(t, logs.String(), "schema mismatch")
}

func TestLoadNoData(t *testing.T) {
	var logs bytes.Buffer

	empty := t.TempDir()
	_, err := newTestLoader(t, empty, &logs).Load(context.Background(), testSchema)
	assert.True(t, errors.Is(err, ErrNoData), "empty dir: err = %v", err)

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "a_2019.html"), []byte("nothing"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(broken, "b_2020.html"), []byte("<table><tr><th>x</th></tr></table>"), 0644))
	_, err = newTestLoader(t, broken, &logs).Load(context.Background(), testSchema)
	assert.True(t, errors.Is(err, ErrNoData), "broken files: err = %v", err)

	_, err = newTestLoader(t, filepath.Join(empty, "missing"), &logs).Load(context.Background(), testSchema)
	assert.True(t, errors.Is(err, os.ErrNotExist), "missing dir: err = %v", err)
}

func TestLoadRequiresPositionColumn(t *testing.T) {
	var logs bytes.Buffer
	_, err := newTestLoader(t, t.TempDir(), &logs).Load(context.Background(), schema.Schema{"Name", "CA", "Age"})
	assert.True(t, errors.Is(err, schema.ErrInvalidSchema), "err = %v", err)
}

func TestLoadDroppedTokenIsLogged(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "players_2019.html", [3]string{"A", "GK, wb (l)", "120"})

	var logs bytes.Buffer
	tbl, err := newTestLoader(t, dir, &logs).Load(context.Background(), testSchema)
	require.NoError(t, err)
	assert.Equal(t, []string{"GK"}, tbl.Column("Position").Tags[0])
	assert.Contains(t, logs.String(), `"message":"position token dropped"`)
	assert.Contains(t, logs.String(), `"token":"wb (l)"`)
}

func TestLoadCanceled(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir, "players_2019.html", [3]string{"A", "GK", "120"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var logs bytes.Buffer
	_, err := newTestLoader(t, dir, &logs).Load(ctx, testSchema)
	assert.True(t, errors.Is(err, context.Canceled), "err = %v", err)
}

func TestNewLoaderValidation(t *testing.T) {
	_, err := NewLoader(Config{})
	assert.Error(t, err)
	_, err = NewLoader(Config{Dir: "x", ChunkSize: -1})
	assert.Error(t, err)

	l, err := NewLoader(Config{Dir: "x"})
	require.NoError(t, err)
	assert.Equal(t, DefaultWorkers, l.cfg.Workers)
	assert.Equal(t, DefaultPositionColumn, l.cfg.PositionColumn)
}
