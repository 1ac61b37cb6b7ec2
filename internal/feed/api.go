package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record is a single reservation row from the upstream feed. The feed is
// spreadsheet-backed and column names arrive in Spanish with inconsistent
// casing, so decoding tolerates several variants per field.
type Record struct {
	ID         string
	Date       string // "2006-01-02"
	Time       string // "HH:MM", sometimes "HH.MM"
	ClientName string
	Phone      string
	PartySize  int
	TableName  string // Display name, may be "unassigned" or empty
	TableID    int64  // Explicit table id when the feed provides one, else 0
	RawStatus  string
	Notes      string
}

// UnmarshalJSON decodes a reservation row, trying each known field-name
// variant in order.
func (r *Record) UnmarshalJSON(data []byte) error {
	var row map[string]json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return err
	}

	pick := func(keys ...string) (json.RawMessage, bool) {
		for _, k := range keys {
			if v, ok := row[k]; ok {
				return v, true
			}
		}
		return nil, false
	}

	asString := func(keys ...string) string {
		raw, ok := pick(keys...)
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		// Numeric cells come back as bare numbers.
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil {
			return n.String()
		}
		return ""
	}

	asInt := func(keys ...string) int {
		raw, ok := pick(keys...)
		if !ok {
			return 0
		}
		var n int
		if err := json.Unmarshal(raw, &n); err == nil {
			return n
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				return v
			}
		}
		return 0
	}

	r.ID = asString("ID", "id", "Id")
	r.Date = asString("Fecha", "fecha")
	r.Time = asString("Hora", "hora")
	r.ClientName = asString("Cliente", "cliente")
	r.Phone = asString("Telefono", "telefono")
	r.PartySize = asInt("Personas", "personas")
	r.TableName = asString("Mesa", "mesa")
	r.TableID = int64(asInt("MesaId", "mesaId", "mesa_id"))
	r.RawStatus = asString("Estado", "estado")
	r.Notes = asString("Notas", "notas")

	if r.ID == "" {
		return fmt.Errorf("reservation row has no ID field")
	}
	return nil
}

// OpenStatus reports whether a restaurant is open for the queried date/time.
type OpenStatus struct {
	Open    bool   `json:"abierto"`
	Message string `json:"mensaje"`
}

type reservationsResponse struct {
	Success  bool     `json:"success"`
	Reservas []Record `json:"reservas"`
	Message  string   `json:"message"`
}

type scheduleResponse struct {
	Success bool       `json:"success"`
	Status  OpenStatus `json:"status"`
	Message string     `json:"message"`
}

type writeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OccupyRequest is the payload for the manual occupy/reserve endpoint. The
// upstream synthesizes a reservation-like record from it, so client fields
// carry placeholder values for walk-ins.
type OccupyRequest struct {
	RestaurantID string `json:"restaurantId"`
	TableName    string `json:"mesa"`
	Zone         string `json:"zona,omitempty"`
	ClientName   string `json:"cliente"`
	PartySize    int    `json:"personas"`
	Status       string `json:"estado"`
	Date         string `json:"fecha"`
	Time         string `json:"hora"`
}
