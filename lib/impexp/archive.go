// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package impexp

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/registry/lib/codec"
	"github.com/bureau-foundation/registry/lib/compress"
	"github.com/bureau-foundation/registry/lib/registryerr"
)

// magic opens every unencrypted archive stream.
var magic = [8]byte{'R', 'E', 'G', 'A', 'R', 'C', 0, 1}

// agePrefix opens every age-encrypted file.
const agePrefix = "age-encryption.org/"

// digestKey is the BLAKE3 key for the archive digest: ASCII domain
// name zero-padded to 32 bytes.
var digestKey = [32]byte{
	'b', 'u', 'r', 'e', 'a', 'u', '.', 'r', 'e', 'g', 'i', 's', 't', 'r', 'y', '.',
	'a', 'r', 'c', 'h', 'i', 'v', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// typeTrailer marks the final record. It is never handed to callers.
const typeTrailer EntityType = "$trailer"

type trailer struct {
	Records int64  `cbor:"records"`
	Digest  []byte `cbor:"digest"`
}

// ErrEncrypted is returned when an encrypted archive is opened without
// identities.
var ErrEncrypted = errors.New("impexp: archive is encrypted and no identity was supplied")

// Writer produces an archive stream.
type Writer struct {
	compressed io.WriteCloser
	encrypted  io.WriteCloser
	digest     *blake3.Hasher
	records    int64
	closed     bool
}

// NewWriter starts an archive on w. With recipients the stream is
// age-encrypted to all of them. Close must be called to write the
// trailer; it does not close w.
func NewWriter(w io.Writer, recipients ...age.Recipient) (*Writer, error) {
	writer := &Writer{}
	if len(recipients) > 0 {
		encrypted, err := age.Encrypt(w, recipients...)
		if err != nil {
			return nil, fmt.Errorf("impexp: encrypt archive: %w", err)
		}
		writer.encrypted = encrypted
		w = encrypted
	}
	if _, err := w.Write(magic[:]); err != nil {
		return nil, fmt.Errorf("impexp: write header: %w", err)
	}
	compressed, err := compress.NewWriter(w)
	if err != nil {
		return nil, err
	}
	writer.compressed = compressed
	digest, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		return nil, fmt.Errorf("impexp: digest: %w", err)
	}
	writer.digest = digest
	return writer, nil
}

// Write appends one entity.
func (w *Writer) Write(entity Entity) error {
	record, err := EncodeEntity(entity)
	if err != nil {
		return err
	}
	return w.WriteRecord(record)
}

// WriteRecord appends a pre-framed record.
func (w *Writer) WriteRecord(record Record) error {
	if w.closed {
		return errors.New("impexp: write to closed archive")
	}
	if record.Type == typeTrailer {
		return registryerr.Invalid("record type %q is reserved", record.Type)
	}
	raw, err := codec.Marshal(record)
	if err != nil {
		return fmt.Errorf("impexp: encode record: %w", err)
	}
	w.digest.Write(raw)
	w.records++
	if _, err := w.compressed.Write(raw); err != nil {
		return fmt.Errorf("impexp: write record: %w", err)
	}
	return nil
}

// Records returns the number of records written so far.
func (w *Writer) Records() int64 { return w.records }

// Close writes the trailer and flushes the compression and encryption
// layers.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	body, err := codec.Marshal(trailer{Records: w.records, Digest: w.digest.Sum(nil)})
	if err != nil {
		return fmt.Errorf("impexp: encode trailer: %w", err)
	}
	raw, err := codec.Marshal(Record{Type: typeTrailer, Version: schemaVersion, Body: body})
	if err != nil {
		return fmt.Errorf("impexp: encode trailer: %w", err)
	}
	if _, err := w.compressed.Write(raw); err != nil {
		return fmt.Errorf("impexp: write trailer: %w", err)
	}
	if err := w.compressed.Close(); err != nil {
		return fmt.Errorf("impexp: flush archive: %w", err)
	}
	if w.encrypted != nil {
		if err := w.encrypted.Close(); err != nil {
			return fmt.Errorf("impexp: finish encryption: %w", err)
		}
	}
	return nil
}

// Reader consumes an archive stream. Records are returned as they are
// read; the digest is checked when the trailer arrives, so a caller
// must treat everything it read as unverified until Next returns
// io.EOF.
type Reader struct {
	decompressed io.ReadCloser
	decoder      *codec.Decoder
	digest       *blake3.Hasher
	records      int64
	done         bool
}

// NewReader opens an archive. Encrypted archives are detected and
// decrypted with identities.
func NewReader(r io.Reader, identities ...age.Identity) (*Reader, error) {
	buffered := bufio.NewReader(r)
	prefix, err := buffered.Peek(len(agePrefix))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("impexp: read header: %w", err)
	}
	var source io.Reader = buffered
	if bytes.Equal(prefix, []byte(agePrefix)) {
		if len(identities) == 0 {
			return nil, ErrEncrypted
		}
		decrypted, err := age.Decrypt(buffered, identities...)
		if err != nil {
			return nil, &registryerr.IntegrityError{Err: fmt.Errorf("decrypt archive: %w", err)}
		}
		source = decrypted
	}

	var header [len(magic)]byte
	if _, err := io.ReadFull(source, header[:]); err != nil {
		return nil, &registryerr.IntegrityError{Err: fmt.Errorf("read archive header: %w", err)}
	}
	if header != magic {
		return nil, registryerr.Invalid("not a registry archive (header %x)", header[:])
	}
	decompressed, err := compress.NewReader(source)
	if err != nil {
		return nil, err
	}
	digest, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		decompressed.Close()
		return nil, fmt.Errorf("impexp: digest: %w", err)
	}
	return &Reader{
		decompressed: decompressed,
		decoder:      codec.NewDecoder(decompressed),
		digest:       digest,
	}, nil
}

// Next returns the next record. It returns io.EOF after a trailer
// whose digest matches, and an IntegrityError when the stream ends
// without one or the digest disagrees.
func (r *Reader) Next() (Record, error) {
	if r.done {
		return Record{}, io.EOF
	}
	var raw codec.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, &registryerr.IntegrityError{Err: errors.New("archive ends without a trailer")}
		}
		return Record{}, &registryerr.IntegrityError{Err: fmt.Errorf("read record %d: %w", r.records+1, err)}
	}
	var record Record
	if err := codec.Unmarshal(raw, &record); err != nil {
		return Record{}, &registryerr.IntegrityError{Err: fmt.Errorf("decode record %d: %w", r.records+1, err)}
	}
	if record.Type == typeTrailer {
		return Record{}, r.finish(record)
	}
	r.digest.Write(raw)
	r.records++
	return record, nil
}

func (r *Reader) finish(record Record) error {
	r.done = true
	var end trailer
	if err := codec.Unmarshal(record.Body, &end); err != nil {
		return &registryerr.IntegrityError{Err: fmt.Errorf("decode trailer: %w", err)}
	}
	if end.Records != r.records {
		return &registryerr.IntegrityError{Err: fmt.Errorf("trailer counts %d records, read %d", end.Records, r.records)}
	}
	if !bytes.Equal(end.Digest, r.digest.Sum(nil)) {
		return &registryerr.IntegrityError{Err: errors.New("archive digest mismatch")}
	}
	var extra codec.RawMessage
	if err := r.decoder.Decode(&extra); !errors.Is(err, io.EOF) {
		return &registryerr.IntegrityError{Err: errors.New("data after archive trailer")}
	}
	return io.EOF
}

// Records returns the number of records read so far, excluding the
// trailer.
func (r *Reader) Records() int64 { return r.records }

// Close releases the decompressor.
func (r *Reader) Close() error { return r.decompressed.Close() }

// GenerateKey creates an X25519 key pair for archive encryption. The
// public half is the recipient string, the private half the identity
// string.
func GenerateKey() (recipient, identity string, err error) {
	key, err := age.GenerateX25519Identity()
	if err != nil {
		return "", "", fmt.Errorf("impexp: generate key: %w", err)
	}
	return key.Recipient().String(), key.String(), nil
}

// ParseRecipients reads age recipients, one per line. Blank lines and
// lines starting with # are ignored.
func ParseRecipients(r io.Reader) ([]age.Recipient, error) {
	recipients, err := age.ParseRecipients(r)
	if err != nil {
		return nil, registryerr.Invalid("parse recipients: %v", err)
	}
	return recipients, nil
}

// ParseIdentities reads age identities in the format written by
// [GenerateKey].
func ParseIdentities(r io.Reader) ([]age.Identity, error) {
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, registryerr.Invalid("parse identities: %v", err)
	}
	return identities, nil
}
