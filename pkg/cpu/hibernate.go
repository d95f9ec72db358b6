package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	snapshotStateEntry   = "state.json"
	snapshotProgramEntry = "program.bin"
	snapshotDataEntry    = "data.bin"
)

// machineState is the JSON-serializable snapshot of CPU control state. Each
// snapshot carries its own ULID so archives sort by creation time and stay
// unique across machines.
type machineState struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	Regs        [16]uint16 `json:"regs"`
	PC          uint16     `json:"pc"`
	Z           bool       `json:"z"`
	N           bool       `json:"n"`
	Halted      bool       `json:"halted"`
	Steps       uint64     `json:"steps"`
	ReturnStack []uint16   `json:"return_stack"`
}

// HibernateToBytes serialises the complete machine state into an in-memory
// ZIP archive and returns the raw bytes plus the snapshot id.
func (c *CPU) HibernateToBytes() ([]byte, string, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	// 1. state.json
	state := machineState{
		ID:          ulid.Make().String(),
		CreatedAt:   time.Now().UTC(),
		Regs:        c.Regs,
		PC:          c.PC,
		Z:           c.Z,
		N:           c.N,
		Halted:      c.Halted,
		Steps:       c.Steps,
		ReturnStack: append([]uint16(nil), c.returnStack...),
	}
	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("marshal state: %w", err)
	}
	if err := writeZipEntry(zw, snapshotStateEntry, jsonData); err != nil {
		return nil, "", err
	}

	// 2. program.bin and data.bin, little-endian words
	if err := writeZipEntry(zw, snapshotProgramEntry, WordsToBytes(c.Program)); err != nil {
		return nil, "", err
	}
	if err := writeZipEntry(zw, snapshotDataEntry, WordsToBytes(c.Data)); err != nil {
		return nil, "", err
	}

	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), state.ID, nil
}

// RestoreFromBytes deserialises a ZIP archive produced by HibernateToBytes
// and applies the saved state to the CPU. Returns the snapshot id.
func (c *CPU) RestoreFromBytes(data []byte) (string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, snapshotStateEntry)
	if err != nil {
		return "", err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return "", fmt.Errorf("unmarshal state: %w", err)
	}
	if _, err := ulid.ParseStrict(state.ID); err != nil {
		return "", fmt.Errorf("snapshot id %q: %w", state.ID, err)
	}

	progBytes, err := readZipEntry(fileMap, snapshotProgramEntry)
	if err != nil {
		return "", err
	}
	program, err := BytesToWords(progBytes)
	if err != nil {
		return "", fmt.Errorf("restore program: %w", err)
	}
	dataBytes, err := readZipEntry(fileMap, snapshotDataEntry)
	if err != nil {
		return "", err
	}
	dataWords, err := BytesToWords(dataBytes)
	if err != nil {
		return "", fmt.Errorf("restore data: %w", err)
	}
	if len(dataWords) != c.Spec.MemWords {
		return "", fmt.Errorf("snapshot data size %d does not match machine memory %d",
			len(dataWords), c.Spec.MemWords)
	}
	if err := c.LoadProgram(program); err != nil {
		return "", err
	}

	copy(c.Data, dataWords)
	c.Regs = state.Regs
	c.PC = state.PC
	c.Z = state.Z
	c.N = state.N
	c.Halted = state.Halted
	c.Steps = state.Steps
	c.returnStack = append(c.returnStack[:0], state.ReturnStack...)

	return state.ID, nil
}

// HibernateToFile writes the snapshot archive to the given file path and
// returns the snapshot id.
func (c *CPU) HibernateToFile(path string) (string, error) {
	data, id, err := c.HibernateToBytes()
	if err != nil {
		return "", err
	}
	return id, os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a snapshot archive from the given file path and
// restores the machine state.
func (c *CPU) RestoreFromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return c.RestoreFromBytes(data)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
