package bias

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/astrogo/fitsio"

	"github.com/openastro/masterbias/pkg/fits"
)

func biasCards(temp float64) []fitsio.Card {
	return []fitsio.Card{
		{Name: "IMAGETYP", Value: "Bias Frame"},
		{Name: "EXPTIME", Value: 0.001},
		{Name: "CCD-TEMP", Value: temp},
		{Name: "XBINNING", Value: 1},
	}
}

func TestRunEmptyInput(t *testing.T) {
	outcome, err := Run(context.Background(), nil, NewConfig())
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("got %v, want empty-input", err)
	}
	if outcome.FilesExamined != 0 {
		t.Errorf("examined %d files out of nowhere", outcome.FilesExamined)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for i, v := range []float64{100, 200, 600} {
		path := filepath.Join(dir, "bias-"+string(rune('1'+i))+".fit")
		writeTestFrame(t, path, 4, 3, v, biasCards(-10.0)...)
		inputs = append(inputs, path)
	}

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.Output.Path = filepath.Join(dir, "master.fit")
	if err := cfg.Finalize(); err != nil {
		t.Fatal(err)
	}

	outcome, err := Run(context.Background(), inputs, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Succeeded() != 1 || len(outcome.Groups) != 1 {
		t.Fatalf("got %d/%d groups; want one successful group", outcome.Succeeded(), len(outcome.Groups))
	}

	fr, err := fits.Describe(cfg.Output.Path)
	if err != nil {
		t.Fatal(err)
	}
	if fr.Type != fits.TypeBias {
		t.Errorf("output frame type %s, want Bias", fr.Type)
	}
	g, err := fr.Pixels()
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range g.Values() {
		if v != 300 {
			t.Fatalf("sample = %f, want mean 300", v)
		}
	}

	// Inputs stay in place with disposition off.
	for _, path := range inputs {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("input %s disturbed: %v", path, err)
		}
	}
}

func TestRunScreensAndRecords(t *testing.T) {
	dir := t.TempDir()

	biasPath := filepath.Join(dir, "bias-1.fit")
	writeTestFrame(t, biasPath, 4, 3, 500, biasCards(-10.0)...)

	flatPath := filepath.Join(dir, "flat-1.fit")
	writeTestFrame(t, flatPath, 4, 3, 30000, fitsio.Card{Name: "IMAGETYP", Value: "Flat Frame"})

	junkPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(junkPath, []byte("not a fits file"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.Output.Path = filepath.Join(dir, "master.fit")

	outcome, err := Run(context.Background(), []string{biasPath, flatPath, junkPath}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Unreadable) != 1 || outcome.Unreadable[0].Path != junkPath {
		t.Errorf("unreadable = %v, want just the text file", outcome.Unreadable)
	}
	if len(outcome.Excluded) != 1 || outcome.Excluded[0].Path != flatPath {
		t.Errorf("excluded = %v, want just the flat frame", outcome.Excluded)
	}
	if outcome.Succeeded() != 1 {
		t.Errorf("the surviving bias frame should still combine")
	}
}

func TestRunIgnoreTypeKeepsEverything(t *testing.T) {
	dir := t.TempDir()
	flatPath := filepath.Join(dir, "flat-1.fit")
	writeTestFrame(t, flatPath, 4, 3, 30000, fitsio.Card{Name: "IMAGETYP", Value: "Flat Frame"})

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.IgnoreType = true
	cfg.Output.Path = filepath.Join(dir, "master.fit")

	outcome, err := Run(context.Background(), []string{flatPath}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Excluded) != 0 || outcome.Succeeded() != 1 {
		t.Errorf("type screening should be off: excluded %v", outcome.Excluded)
	}
}

func TestRunWriteConflict(t *testing.T) {
	// Two geometries with one explicit output path: the first group
	// claims the path, the second must fail rather than clobber it.
	dir := t.TempDir()
	small := filepath.Join(dir, "bias-small.fit")
	big := filepath.Join(dir, "bias-big.fit")
	writeTestFrame(t, small, 4, 3, 100, biasCards(-10.0)...)
	writeTestFrame(t, big, 6, 3, 100, biasCards(-10.0)...)

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.Output.Path = filepath.Join(dir, "master.fit")
	cfg.Workers = 1

	outcome, err := Run(context.Background(), []string{small, big}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcome.Groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(outcome.Groups))
	}
	if outcome.Groups[0].Err != nil {
		t.Errorf("first group should have written: %v", outcome.Groups[0].Err)
	}
	if !errors.Is(outcome.Groups[1].Err, ErrWriteConflict) {
		t.Errorf("second group: got %v, want a write conflict", outcome.Groups[1].Err)
	}
}

func TestRunNoGroupsSurvived(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bias-1.fit")
	writeTestFrame(t, path, 4, 3, 100, biasCards(-10.0)...)

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.Grouping.BySize = true
	cfg.Grouping.MinimumGroupSize = 5

	outcome, err := Run(context.Background(), []string{path}, cfg)
	if !errors.Is(err, ErrNoGroupsSurvived) {
		t.Fatalf("got %v, want no-groups-survived", err)
	}
	if outcome.FramesDropped != 1 || len(outcome.GroupsDropped) != 1 {
		t.Errorf("dropped %d frames in %d groups, want 1 in 1",
			outcome.FramesDropped, len(outcome.GroupsDropped))
	}
}

func TestRunDisposition(t *testing.T) {
	dir := t.TempDir()
	var inputs []string
	for _, name := range []string{"bias-1.fit", "bias-2.fit"} {
		path := filepath.Join(dir, name)
		writeTestFrame(t, path, 4, 3, 100, biasCards(-10.0)...)
		inputs = append(inputs, path)
	}

	cfg := NewConfig()
	cfg.Combine.Method = MethodMedian
	cfg.Output.Path = filepath.Join(dir, "master.fit")
	cfg.Disposition.MoveToSubfolder = true
	cfg.Disposition.SubfolderName = "done"

	outcome, err := Run(context.Background(), inputs, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if outcome.Succeeded() != 1 {
		t.Fatal("combination should have succeeded")
	}
	for _, path := range inputs {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("input %s should have been moved", path)
		}
		moved := filepath.Join(dir, "done", filepath.Base(path))
		if _, err := os.Stat(moved); err != nil {
			t.Errorf("moved input missing: %v", err)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bias-1.fit")
	writeTestFrame(t, path, 4, 3, 100, biasCards(-10.0)...)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := NewConfig()
	cfg.Combine.Method = MethodMean
	cfg.Output.Path = filepath.Join(dir, "master.fit")

	_, err := Run(ctx, []string{path}, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want cancellation", err)
	}
	if _, err := os.Stat(cfg.Output.Path); !os.IsNotExist(err) {
		t.Errorf("no output should exist after a pre-combine cancel")
	}
}
