package repository

import (
	"errors"
	"testing"
	"time"

	"emotion-diary/internal/domain"
)

type fakeRows struct {
	data [][]any
	idx  int
	err  error
}

func (f *fakeRows) Next() bool {
	if f.idx >= len(f.data) {
		return false
	}
	f.idx++
	return true
}

func (f *fakeRows) Scan(dest ...interface{}) error {
	row := f.data[f.idx-1]
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = row[i].(string)
		case **int:
			if row[i] == nil {
				*p = nil
			} else {
				v := row[i].(int)
				*p = &v
			}
		case *time.Time:
			*p = row[i].(time.Time)
		default:
			return errors.New("unsupported dest")
		}
	}
	return nil
}

func (f *fakeRows) Err() error { return f.err }
func (f *fakeRows) Close()     {}

func TestReadingRowRoundTripPerVariant(t *testing.T) {
	readings := []domain.Reading{
		domain.CoordinateReading{X: 8, Y: -4, Color: "#FFCC00"},
		domain.LevelReading{Level: 3, Color: "#112233"},
		domain.TraitReading{Fun: 10, Bright: 0, Energy: 5, Color: "#112233"},
		domain.ColorReading{Color: "#88E0A6"},
	}
	for _, r := range readings {
		row := readingToRow(r)
		got, err := row.toReading(r.Variant(), r.HexColor())
		if err != nil {
			t.Fatalf("variant %s: unexpected error %v", r.Variant(), err)
		}
		if got != r {
			t.Fatalf("variant %s: expected %+v, got %+v", r.Variant(), r, got)
		}
	}
}

func TestReadingRowOnlySetsVariantColumns(t *testing.T) {
	row := readingToRow(domain.LevelReading{Level: 2, Color: "#88E0A6"})
	if row.X != nil || row.Y != nil || row.Fun != nil || row.Bright != nil || row.Energy != nil {
		t.Fatalf("expected only level column, got %+v", row)
	}
	if row.Level == nil || *row.Level != 2 {
		t.Fatalf("expected level 2, got %v", row.Level)
	}
}

func TestReadingRowMissingColumnsFails(t *testing.T) {
	if _, err := (readingRow{}).toReading(domain.VariantCoordinate, "#FFFFFF"); err == nil {
		t.Fatalf("expected error for coordinate row without x/y")
	}
	if _, err := (readingRow{}).toReading(domain.Variant("nope"), "#FFFFFF"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}

func TestScanDiaryRecords(t *testing.T) {
	now := time.Now().UTC()
	rows := &fakeRows{data: [][]any{
		{"u1", "2024-06-01", "今日は楽しかった", "text", "coordinate", 8, 4, nil, nil, nil, nil, "#FFCC00", now, now},
		{"u1", "2024-06-02", "疲れた", "audio", "coordinate", -3, -6, nil, nil, nil, nil, "#666699", now, now},
	}}

	records, err := scanDiaryRecords(rows)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first, ok := records[0].Reading.(domain.CoordinateReading)
	if !ok || first.X != 8 || first.Y != 4 || first.Color != "#FFCC00" {
		t.Fatalf("unexpected first reading %+v", records[0].Reading)
	}
	if records[1].Source != domain.SourceAudio {
		t.Fatalf("expected audio source, got %s", records[1].Source)
	}
}

func TestScanDiaryRecordsPropagatesRowsErr(t *testing.T) {
	rows := &fakeRows{err: errors.New("boom")}
	if _, err := scanDiaryRecords(rows); err == nil {
		t.Fatalf("expected rows error")
	}
}
