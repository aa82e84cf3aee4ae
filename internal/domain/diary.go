package domain

import (
	"encoding/json"
	"time"
)

// EntrySource indica de donde salio el texto analizado.
type EntrySource string

const (
	SourceText  EntrySource = "text"
	SourceAudio EntrySource = "audio"
)

// DiaryRecord es la unidad persistida por usuario y dia. Cada guardado sobreescribe la fila.
type DiaryRecord struct {
	UserID    string
	Date      string
	Text      string
	Source    EntrySource
	Reading   Reading
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Key es el identificador compuesto uid_date.
func (r DiaryRecord) Key() string {
	return r.UserID + "_" + r.Date
}

// Fields aplana el registro junto con los campos de la lectura.
func (r DiaryRecord) Fields() map[string]any {
	out := map[string]any{
		"uid":    r.UserID,
		"date":   r.Date,
		"text":   r.Text,
		"source": r.Source,
	}
	if r.Reading != nil {
		out["variant"] = r.Reading.Variant()
		for k, v := range r.Reading.Fields() {
			out[k] = v
		}
	}
	if !r.UpdatedAt.IsZero() {
		out["updated_at"] = r.UpdatedAt
	}
	return out
}

func (r DiaryRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Fields())
}

// AudioBlob es el audio crudo subido por el usuario.
type AudioBlob struct {
	Key         string
	Filename    string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
