package businessflow

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
)

// PreviewGuidPlaceholder stands in for random UUID elements in previews so
// repeated previews of the same inventory render identically.
const PreviewGuidPlaceholder = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"

// CustomIdAllocator produces the next custom identifier for an inventory
// (Generate) or a non-mutating forecast of it (Preview). Generate must run
// inside the transaction that also inserts the owning item so an aborted
// insert rolls the counter advance back with it.
type CustomIdAllocator interface {
	Generate(ctx context.Context, inventoryID uint) (string, error)
	Preview(ctx context.Context, inventoryID uint) (string, error)
}

type CustomIdAllocatorImpl struct {
	idFormatRepo repository.IdFormatRepository
	counterRepo  repository.SequenceCounterRepository
	itemRepo     repository.ItemRepository
}

func NewCustomIdAllocator(
	idFormatRepo repository.IdFormatRepository,
	counterRepo repository.SequenceCounterRepository,
	itemRepo repository.ItemRepository,
) CustomIdAllocator {
	return &CustomIdAllocatorImpl{
		idFormatRepo: idFormatRepo,
		counterRepo:  counterRepo,
		itemRepo:     itemRepo,
	}
}

// Generate allocates the next identifier for the inventory. The counter is
// first reconciled against identifiers already persisted (self-healing when
// the counter row was reset or never initialized), then advanced atomically.
func (a *CustomIdAllocatorImpl) Generate(ctx context.Context, inventoryID uint) (string, error) {
	schema, isFallback, err := a.readSchema(ctx, inventoryID)
	if err != nil {
		return "", err
	}
	if isFallback {
		return uuid.NewString(), nil
	}
	if err := assertExactlyOneSequence(schema); err != nil {
		return "", err
	}

	moment := utils.UTCNow()
	maxExisting, err := a.maxExistingSequence(ctx, inventoryID, schema)
	if err != nil {
		return "", err
	}

	scopeKey := schema.SequenceElement().ScopeKey()

	if err := a.counterRepo.Ensure(ctx, inventoryID, scopeKey); err != nil {
		return "", err
	}
	if err := a.counterRepo.RaiseTo(ctx, inventoryID, scopeKey, maxExisting); err != nil {
		return "", err
	}
	next, err := a.counterRepo.IncrementAndGet(ctx, inventoryID, scopeKey)
	if err != nil {
		return "", err
	}

	generated, err := renderCustomId(schema, moment, next, false)
	if err != nil {
		return "", err
	}

	if schema.MaxLength != nil && len(generated) > *schema.MaxLength {
		return "", fmt.Errorf("generated id %q has %d characters, cap is %d: %w",
			generated, len(generated), *schema.MaxLength, ErrGeneratedIdTooLong)
	}

	return generated, nil
}

// Preview renders the identifier the next Generate would most likely return.
// It never mutates the counter; random elements are replaced by deterministic
// placeholders so repeated previews are stable. An over-long preview is
// truncated rather than rejected.
func (a *CustomIdAllocatorImpl) Preview(ctx context.Context, inventoryID uint) (string, error) {
	schema, isFallback, err := a.readSchema(ctx, inventoryID)
	if err != nil {
		return "", err
	}
	if isFallback {
		return PreviewGuidPlaceholder, nil
	}
	if err := assertExactlyOneSequence(schema); err != nil {
		return "", err
	}

	moment := utils.UTCNow()
	scopeKey := schema.SequenceElement().ScopeKey()

	maxExisting, err := a.maxExistingSequence(ctx, inventoryID, schema)
	if err != nil {
		return "", err
	}
	current, err := a.counterRepo.Current(ctx, inventoryID, scopeKey)
	if err != nil {
		return "", err
	}

	peek := current + 1
	if maxExisting+1 > peek {
		peek = maxExisting + 1
	}

	preview, err := renderCustomId(schema, moment, peek, true)
	if err != nil {
		return "", err
	}

	if schema.MaxLength != nil && len(preview) > *schema.MaxLength {
		return preview[:*schema.MaxLength], nil
	}

	return preview, nil
}

// readSchema loads the inventory's stored format. Only an absent row (or a
// row whose schema was never written) falls back to a single GUID element,
// bypassing the sequence invariant and the counter machinery. A persisted
// schema is always returned as-is: an explicitly stored empty element list
// is a misconfiguration for assertExactlyOneSequence to reject, not a
// fallback case.
func (a *CustomIdAllocatorImpl) readSchema(ctx context.Context, inventoryID uint) (models.IdFormatSchema, bool, error) {
	row, err := a.idFormatRepo.ByInventoryID(ctx, inventoryID)
	if err != nil {
		return models.IdFormatSchema{}, false, err
	}
	if row == nil || row.Schema.Elements == nil {
		return models.GuidFallbackSchema(), true, nil
	}
	return row.Schema, false, nil
}

func (a *CustomIdAllocatorImpl) maxExistingSequence(ctx context.Context, inventoryID uint, schema models.IdFormatSchema) (int64, error) {
	pattern, likePrefix, likeSuffix := buildSequenceExtraction(schema)
	return a.itemRepo.MaxExistingSequence(ctx, inventoryID, pattern, likePrefix, likeSuffix)
}

// assertExactlyOneSequence enforces the structural invariant of every format:
// one sequence element, no more, no fewer. The error is deterministic, so
// callers must not retry it.
func assertExactlyOneSequence(schema models.IdFormatSchema) error {
	if len(schema.Elements) == 0 {
		return ErrIdFormatEmptyElements
	}
	if n := schema.SequenceElementCount(); n != 1 {
		return fmt.Errorf("format has %d sequence elements: %w", n, ErrIdFormatSequenceCount)
	}
	return nil
}

// buildSequenceExtraction derives from the schema a Postgres regex capturing
// the digits at the sequence position, plus LIKE prefix/suffix fragments built
// from the deterministic literals around it to narrow the scan.
func buildSequenceExtraction(schema models.IdFormatSchema) (pattern, likePrefix, likeSuffix string) {
	// chunks holds the rendered pieces in order; nil marks a piece whose text
	// is not known up front (sequence, random, guid, date).
	chunks := make([]*string, 0, len(schema.Elements)*2)
	var b strings.Builder
	b.WriteString("^")

	for i, element := range schema.Elements {
		switch element.Type {
		case models.IdElementFixedText:
			value := ""
			if element.Value != nil {
				value = *element.Value
			}
			b.WriteString(regexp.QuoteMeta(value))
			chunks = append(chunks, &value)
		case models.IdElementSequence:
			b.WriteString(`(\d+)`)
			chunks = append(chunks, nil)
		default:
			b.WriteString(".*")
			chunks = append(chunks, nil)
		}

		// Separators attach to their element and are skipped on the last one,
		// mirroring how identifiers are rendered
		if i != len(schema.Elements)-1 && element.Separator != nil && *element.Separator != "" {
			sep := *element.Separator
			b.WriteString(regexp.QuoteMeta(sep))
			chunks = append(chunks, &sep)
		}
	}
	b.WriteString("$")

	// A LIKE prefix is only sound while every piece from the start is a known
	// literal; same for the suffix from the end. The sequence element always
	// breaks the walk, so the two never overlap.
	for _, chunk := range chunks {
		if chunk == nil {
			break
		}
		likePrefix += *chunk
	}
	for i := len(chunks) - 1; i >= 0; i-- {
		if chunks[i] == nil {
			break
		}
		likeSuffix = *chunks[i] + likeSuffix
	}

	return b.String(), likePrefix, likeSuffix
}

// renderCustomId composes the identifier from the ordered elements. Separators
// attach to their element and are skipped on the last one. Preview mode swaps
// every random element for a deterministic placeholder.
func renderCustomId(schema models.IdFormatSchema, moment time.Time, sequenceValue int64, isPreview bool) (string, error) {
	var parts []string

	for i, element := range schema.Elements {
		var rendered string

		switch element.Type {
		case models.IdElementFixedText:
			if element.Value != nil {
				rendered = *element.Value
			}
		case models.IdElementRandom20Bit:
			n, err := randomBelow(1<<20, isPreview)
			if err != nil {
				return "", err
			}
			if utils.IsTrue(element.LeadingZeros) {
				rendered = fmt.Sprintf("%07d", n)
			} else {
				rendered = strconv.FormatInt(n, 10)
			}
		case models.IdElementRandom32Bit:
			n, err := randomBelow(1<<32, isPreview)
			if err != nil {
				return "", err
			}
			if utils.IsTrue(element.LeadingZeros) {
				rendered = fmt.Sprintf("%010d", n)
			} else {
				rendered = strconv.FormatInt(n, 10)
			}
		case models.IdElementRandom6Digit:
			n, err := randomBelow(1_000_000, isPreview)
			if err != nil {
				return "", err
			}
			rendered = fmt.Sprintf("%06d", n)
		case models.IdElementRandom9Digit:
			n, err := randomBelow(1_000_000_000, isPreview)
			if err != nil {
				return "", err
			}
			rendered = fmt.Sprintf("%09d", n)
		case models.IdElementGuid:
			if isPreview {
				rendered = PreviewGuidPlaceholder
			} else {
				rendered = uuid.NewString()
			}
		case models.IdElementDateTime:
			format := "YYYYMMDD"
			if element.Format != nil && *element.Format != "" {
				format = *element.Format
			}
			rendered = formatDateUTC(moment, format)
		case models.IdElementSequence:
			if utils.IsTrue(element.LeadingZeros) {
				rendered = fmt.Sprintf("%06d", sequenceValue)
			} else {
				rendered = strconv.FormatInt(sequenceValue, 10)
			}
		default:
			return "", fmt.Errorf("element type %q: %w", element.Type, ErrIdFormatUnknownType)
		}

		parts = append(parts, rendered)

		isLast := i == len(schema.Elements)-1
		if !isLast && element.Separator != nil && *element.Separator != "" {
			parts = append(parts, *element.Separator)
		}
	}

	return strings.Join(parts, ""), nil
}

// randomBelow returns a uniform random integer in [0, bound); previews always
// render zero so they stay deterministic.
func randomBelow(bound int64, isPreview bool) (int64, error) {
	if isPreview {
		return 0, nil
	}
	n, err := rand.Int(rand.Reader, big.NewInt(bound))
	if err != nil {
		return 0, fmt.Errorf("failed to draw random value: %w", err)
	}
	return n.Int64(), nil
}

// formatDateUTC renders the allocation instant per a small fixed tag set;
// unrecognized tags fall back to YYYYMMDD.
func formatDateUTC(t time.Time, format string) string {
	t = t.UTC()
	switch format {
	case "ISO":
		return t.Format("2006-01-02T15:04:05.000Z")
	case "timestamp":
		return strconv.FormatInt(t.UnixMilli(), 10)
	case "YYYY":
		return t.Format("2006")
	case "YYYY-MM":
		return t.Format("2006-01")
	case "YYYYMM":
		return t.Format("200601")
	case "YYYY-MM-DD":
		return t.Format("2006-01-02")
	case "YYYYMMDD":
		return t.Format("20060102")
	case "HH:MM:SS":
		return t.Format("15:04:05")
	case "HHMMSS":
		return t.Format("150405")
	default:
		return t.Format("20060102")
	}
}
