package model

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/golang/snappy"

	"github.com/YuminosukeSato/predictive/pkg/errors"
)

// WriteSnapshot はスナップショットをsnappyストリーム形式で圧縮したJSONとして書き込む
//
// 使用例:
//
//	var buf bytes.Buffer
//	err := model.WriteSnapshot(&buf, snap)
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	sw := snappy.NewBufferedWriter(w)
	if err := json.NewEncoder(sw).Encode(s); err != nil {
		_ = sw.Close()
		return errors.Wrap(err, "encode snapshot")
	}
	if err := sw.Close(); err != nil {
		return errors.Wrap(err, "flush snapshot")
	}
	return nil
}

// ReadSnapshot はWriteSnapshotで書き込まれたスナップショットを読み込み、検証する
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(snappy.NewReader(r)).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "decode snapshot")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// EncodeSnapshot はスナップショットをバイト列に変換する
func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteSnapshot(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeSnapshot はEncodeSnapshotの逆変換
func DecodeSnapshot(data []byte) (*Snapshot, error) {
	return ReadSnapshot(bytes.NewReader(data))
}

// SaveSnapshotFile はスナップショットをファイルに保存する
func SaveSnapshotFile(s *Snapshot, filename string) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "create %s", filename)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = errors.Wrapf(cerr, "close %s", filename)
		}
	}()
	return WriteSnapshot(file, s)
}

// LoadSnapshotFile はファイルからスナップショットを読み込む
func LoadSnapshotFile(filename string) (*Snapshot, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filename)
	}
	defer file.Close()
	return ReadSnapshot(file)
}
