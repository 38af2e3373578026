package device

// A Storage keeps the cell contents of the modeled chip.
//
// Rows are allocated lazily: a row that was never written costs no memory
// and reads back as zeros, so modeling the full 32 MB part stays cheap.
type Storage struct {
	rowBytes int
	rows     map[int][]byte
}

// NewStorage creates a storage whose allocation unit is one row.
func NewStorage(rowBytes int) *Storage {
	return &Storage{
		rowBytes: rowBytes,
		rows:     make(map[int][]byte),
	}
}

func (s *Storage) row(bank, numRows, row int) []byte {
	key := bank*numRows + row

	unit, ok := s.rows[key]
	if !ok {
		unit = make([]byte, s.rowBytes)
		s.rows[key] = unit
	}

	return unit
}

// ReadByte returns one byte of a row.
func (s *Storage) ReadByte(bank, numRows, row, offset int) byte {
	return s.row(bank, numRows, row)[offset]
}

// WriteByte stores one byte of a row.
func (s *Storage) WriteByte(bank, numRows, row, offset int, value byte) {
	s.row(bank, numRows, row)[offset] = value
}

// AllocatedRows returns the number of rows touched so far.
func (s *Storage) AllocatedRows() int {
	return len(s.rows)
}
