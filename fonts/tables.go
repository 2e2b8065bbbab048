package fonts

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Table is an entry in an sfnt table directory.
type Table struct {
	Tag      string
	CheckSum uint32
	Offset   uint32
	Length   uint32
}

// ParseTableDirectory reads the sfnt header and table directory. Both
// TrueType (0x00010000, "true") and CFF ("OTTO") flavours are accepted.
func ParseTableDirectory(data []byte) (map[string]Table, error) {
	r := bytes.NewReader(data)

	var scalerType uint32
	if err := binary.Read(r, binary.BigEndian, &scalerType); err != nil {
		return nil, err
	}
	switch scalerType {
	case 0x00010000, 0x74727565, 0x4F54544F:
	default:
		return nil, fmt.Errorf("unknown sfnt version %#08x", scalerType)
	}

	var numTables uint16
	if err := binary.Read(r, binary.BigEndian, &numTables); err != nil {
		return nil, err
	}
	// searchRange, entrySelector, rangeShift
	if _, err := r.Seek(6, io.SeekCurrent); err != nil {
		return nil, err
	}

	tables := make(map[string]Table, numTables)
	for i := 0; i < int(numTables); i++ {
		var rec struct {
			Tag      [4]byte
			CheckSum uint32
			Offset   uint32
			Length   uint32
		}
		if err := binary.Read(r, binary.BigEndian, &rec); err != nil {
			return nil, fmt.Errorf("table record %d: %w", i, err)
		}
		if uint64(rec.Offset)+uint64(rec.Length) > uint64(len(data)) {
			return nil, fmt.Errorf("table %q out of bounds", rec.Tag[:])
		}
		tag := string(rec.Tag[:])
		tables[tag] = Table{Tag: tag, CheckSum: rec.CheckSum, Offset: rec.Offset, Length: rec.Length}
	}
	return tables, nil
}
