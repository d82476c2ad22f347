package appointment

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"
)

const csvContentType = "text/csv"

var bookingsHeader = []string{"Slot", "Start", "End", "Duration", "Status", "Attendee", "Email"}

// RenderBookingsCSV lists the slots of an appointment ordered by start time,
// one row per slot. Times are rendered in UTC.
func RenderBookingsCSV(a Appointment) (string, error) {
	slots := make([]Slot, len(a.Slots))
	copy(slots, a.Slots)
	sort.Slice(slots, func(i, j int) bool {
		if slots[i].Start.Equal(slots[j].Start) {
			return slots[i].Id < slots[j].Id
		}
		return slots[i].Start.Before(slots[j].Start)
	})

	data := make([][]string, 0, len(slots)+1)
	data = append(data, bookingsHeader)
	for _, slot := range slots {
		data = append(data, slotRow(slot))
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		if err := writer.Write(row); err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}
	return b.String(), nil
}

func slotRow(slot Slot) []string {
	name, email := "", ""
	if slot.Attendee != nil {
		name, email = slot.Attendee.Name, slot.Attendee.Email
	}
	return []string{
		strconv.Itoa(slot.Id),
		slot.Start.UTC().Format(time.RFC3339),
		slot.End().UTC().Format(time.RFC3339),
		minutesToString(slot.Duration),
		string(slot.Status),
		name,
		email,
	}
}

func minutesToString(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
