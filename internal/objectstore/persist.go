package objectstore

import (
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/go-bmd/bmd/internal/wire"
)

// Persist writes the full object set to path as a length-prefixed record
// stream: a VarInt count, then for each object a VarInt byte-length
// followed by its serialized form. This format is internal to the node,
// not part of the wire protocol.
func (s *Store) Persist(path string) error {
	objs := s.Snapshot()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "objectstore: create %s", tmp)
	}
	defer f.Close()

	buf := wire.AppendVarInt(nil, uint64(len(objs)))
	for _, o := range objs {
		raw := o.Bytes()
		buf = wire.AppendVarInt(buf, uint64(len(raw)))
		buf = append(buf, raw...)
	}

	if _, err := f.Write(buf); err != nil {
		return errors.Wrapf(err, "objectstore: write %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "objectstore: close %s", tmp)
	}
	return os.Rename(tmp, path)
}

// Load replaces the store's contents with what's stored at path. A missing
// file is normal on first start and is not an error; a malformed file is
// reported so the caller can log and continue with an empty store.
func (s *Store) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "objectstore: read %s", path)
	}

	objs, err := decodeObjects(data)
	if err != nil {
		return errors.Wrapf(err, "objectstore: decode %s", path)
	}
	s.Replace(objs)
	return nil
}

func decodeObjects(data []byte) ([]wire.Object, error) {
	count, n, err := wire.ReadVarInt(data)
	if err != nil {
		return nil, err
	}
	rest := data[n:]

	out := make([]wire.Object, 0, count)
	for i := uint64(0); i < count; i++ {
		recLen, n, err := wire.ReadVarInt(rest)
		if err != nil {
			return nil, err
		}
		rest = rest[n:]
		if uint64(len(rest)) < recLen {
			return nil, io.ErrUnexpectedEOF
		}
		obj, err := wire.DecodeObject(rest[:recLen])
		if err != nil {
			return nil, err
		}
		rest = rest[recLen:]
		out = append(out, obj)
	}
	return out, nil
}
