package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageSweepStart Stage = "SWEEP_START"
	StageSweepDone  Stage = "SWEEP_DONE"
	StageCellStart  Stage = "CELL_START"
	StageCellDone   Stage = "CELL_DONE"
	StageCellEmpty  Stage = "CELL_EMPTY"
	StageCellError  Stage = "CELL_ERROR"
	StagePageDone   Stage = "PAGE_DONE"
)

// Event captures a single milestone of a sweep.
type Event struct {
	// RunID identifies the sweep run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// LotNumber is the lot expression being searched.
	LotNumber string
	// LotType and Parish scope cell and page events.
	LotType string
	Parish  string
	// Page is the 1-based page index for page events; Pages the expected total.
	Page  int
	Pages int
	// Records counts rows folded on a page, or records produced by a cell or sweep.
	Records int
	// Dur captures elapsed time for cells and sweeps.
	Dur time.Duration
	// Note carries low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSweepStart, StageSweepDone:
	case StageCellStart, StageCellDone, StageCellEmpty, StageCellError:
		if e.LotType == "" || e.Parish == "" {
			return fmt.Errorf("%s requires lot type and parish", e.Stage)
		}
	case StagePageDone:
		if e.Page <= 0 {
			return errors.New("page done requires a positive page")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Records < 0 {
		return errors.New("records must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID for repositories.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
