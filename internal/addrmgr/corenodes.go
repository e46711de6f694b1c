package addrmgr

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// LoadCoreNodesCSV reads a two-column CSV of (host, port) seed peers.
func LoadCoreNodesCSV(path string) ([]PeerAddress, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "addrmgr: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "addrmgr: parse %s", path)
	}

	out := make([]PeerAddress, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		port, err := strconv.ParseUint(rec[1], 10, 16)
		if err != nil {
			continue
		}
		out = append(out, PeerAddress{Network: NetworkIP, Host: rec[0], Port: uint16(port)})
	}
	return out, nil
}

// LoadI2PCoreNodesCSV reads a CSV of I2P seed peers whose first column is
// the destination; any further column (such as an "i2p" marker) is
// ignored.
func LoadI2PCoreNodesCSV(path string) ([]PeerAddress, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "addrmgr: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "addrmgr: parse %s", path)
	}

	out := make([]PeerAddress, 0, len(records))
	for _, rec := range records {
		if len(rec) < 1 {
			continue
		}
		out = append(out, PeerAddress{Network: NetworkI2P, Host: rec[0]})
	}
	return out, nil
}
