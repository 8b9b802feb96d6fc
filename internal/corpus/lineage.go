package corpus

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/argnews/newsrag/pkg/types"
)

// ErrCorpusChanged is returned when the records loaded for a collection no
// longer match the ones it was indexed from.
var ErrCorpusChanged = errors.New("corpus changed since the collection was indexed")

// Metadata keys written by Lineage.Metadata
const (
	metaUseProcessed    = "corpus.use_processed"
	metaMinWords        = "corpus.min_words"
	metaMaxWords        = "corpus.max_words"
	metaMinKeywordScore = "corpus.min_keyword_score"
	metaLimit           = "corpus.limit"
	metaRecords         = "corpus.records"
	metaFingerprint     = "corpus.fingerprint"
)

// Lineage identifies the corpus a collection was built from: the options it
// was loaded with and a fingerprint of the loaded texts.
type Lineage struct {
	Options     LoadOptions
	Records     int
	Fingerprint string
}

// NewLineage describes records loaded with opts.
func NewLineage(opts LoadOptions, records []types.Record) Lineage {
	return Lineage{Options: opts, Records: len(records), Fingerprint: Fingerprint(records)}
}

// Fingerprint hashes the ids and texts of records, in order.
func Fingerprint(records []types.Record) string {
	h := sha256.New()
	var buf [8]byte
	for i := range records {
		binary.LittleEndian.PutUint64(buf[:], uint64(records[i].ID))
		h.Write(buf[:])
		text := records[i].Text()
		binary.LittleEndian.PutUint64(buf[:], uint64(len(text)))
		h.Write(buf[:])
		h.Write([]byte(text))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Metadata renders the lineage as collection metadata.
func (l Lineage) Metadata() map[string]string {
	return map[string]string{
		metaUseProcessed:    strconv.FormatBool(l.Options.UseProcessed),
		metaMinWords:        strconv.Itoa(l.Options.MinWords),
		metaMaxWords:        strconv.Itoa(l.Options.MaxWords),
		metaMinKeywordScore: strconv.FormatFloat(l.Options.MinKeywordScore, 'f', -1, 64),
		metaLimit:           strconv.Itoa(l.Options.Limit),
		metaRecords:         strconv.Itoa(l.Records),
		metaFingerprint:     l.Fingerprint,
	}
}

// LineageFromMetadata parses collection metadata. ok is false when md
// carries no lineage, as for collections indexed before it was recorded.
func LineageFromMetadata(md map[string]string) (l Lineage, ok bool, err error) {
	fp, ok := md[metaFingerprint]
	if !ok {
		return Lineage{}, false, nil
	}
	l.Fingerprint = fp

	if l.Options.UseProcessed, err = strconv.ParseBool(md[metaUseProcessed]); err != nil {
		return Lineage{}, true, fmt.Errorf("lineage %s: %w", metaUseProcessed, err)
	}
	ints := []struct {
		key string
		dst *int
	}{
		{metaMinWords, &l.Options.MinWords},
		{metaMaxWords, &l.Options.MaxWords},
		{metaLimit, &l.Options.Limit},
		{metaRecords, &l.Records},
	}
	for _, f := range ints {
		if *f.dst, err = strconv.Atoi(md[f.key]); err != nil {
			return Lineage{}, true, fmt.Errorf("lineage %s: %w", f.key, err)
		}
	}
	if l.Options.MinKeywordScore, err = strconv.ParseFloat(md[metaMinKeywordScore], 64); err != nil {
		return Lineage{}, true, fmt.Errorf("lineage %s: %w", metaMinKeywordScore, err)
	}
	return l, true, nil
}

// Verify checks that records are the corpus the lineage describes.
func (l Lineage) Verify(records []types.Record) error {
	if len(records) != l.Records {
		return fmt.Errorf("%w: indexed %d records, now %d", ErrCorpusChanged, l.Records, len(records))
	}
	if fp := Fingerprint(records); fp != l.Fingerprint {
		return fmt.Errorf("%w: fingerprint %.12s, indexed %.12s", ErrCorpusChanged, fp, l.Fingerprint)
	}
	return nil
}
