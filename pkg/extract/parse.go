package extract

import (
	"strings"

	"github.com/latticekg/lattice/internal/util"
	"github.com/latticekg/lattice/pkg/common"
	"github.com/latticekg/lattice/pkg/logger"
)

// Wire-format markers for the line-oriented extraction record grammar.
// Every record is independently parseable; records are joined with
// RecordSep so a gleaning continuation can be appended to prior output
// without two records bleeding into one.
const (
	RecordSep      = "##"
	TupleSep       = "<|>"
	CompleteMarker = "<|COMPLETE|>"

	recordTagEntity       = "entity"
	recordTagRelationship = "relationship"

	// DefaultWeight is the relationship weight used when the model emits
	// a missing or non-numeric strength.
	DefaultWeight = 1.0
)

// NormalizeEntityName canonicalizes an extracted entity name for use as a
// graph key: sanitized, whitespace collapsed, upper-cased.
func NormalizeEntityName(name string) string {
	name = util.SanitizeField(name)
	name = strings.Join(strings.Fields(name), " ")
	return strings.ToUpper(name)
}

func splitRecords(output string) []string {
	output = strings.ReplaceAll(output, CompleteMarker, "")

	var records []string
	for _, part := range strings.Split(output, RecordSep) {
		for _, line := range strings.Split(part, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				records = append(records, line)
			}
		}
	}
	return records
}

func parseRecordFields(record string) []string {
	record = strings.TrimSpace(record)
	record = strings.TrimPrefix(record, "(")
	record = strings.TrimSuffix(record, ")")

	fields := strings.Split(record, TupleSep)
	for i := range fields {
		fields[i] = util.SanitizeField(fields[i])
	}
	return fields
}

// parseOutput parses one model output pass into per-record entities and
// relationships. A malformed record is skipped with a warning; it never
// aborts the remaining records of the pass.
func parseOutput(output, chunkID string) ([]common.EntityRecord, []common.RelationshipRecord) {
	var entities []common.EntityRecord
	var relations []common.RelationshipRecord

	for _, record := range splitRecords(output) {
		fields := parseRecordFields(record)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case recordTagEntity:
			if len(fields) < 4 {
				logger.Warn("[Extract] Skipping malformed entity record", "chunk", chunkID, "record", record)
				continue
			}
			name := NormalizeEntityName(fields[1])
			if name == "" {
				logger.Warn("[Extract] Skipping entity record without name", "chunk", chunkID, "record", record)
				continue
			}
			entities = append(entities, common.EntityRecord{
				Name:          name,
				Type:          strings.ToUpper(fields[2]),
				Description:   fields[3],
				SourceChunkID: chunkID,
			})
		case recordTagRelationship:
			if len(fields) < 4 {
				logger.Warn("[Extract] Skipping malformed relationship record", "chunk", chunkID, "record", record)
				continue
			}
			src := NormalizeEntityName(fields[1])
			tgt := NormalizeEntityName(fields[2])
			if src == "" || tgt == "" {
				logger.Warn("[Extract] Skipping relationship record without endpoints", "chunk", chunkID, "record", record)
				continue
			}
			relType := common.DefaultRelationType
			if len(fields) >= 5 && fields[4] != "" {
				relType = strings.ToUpper(fields[4])
			}
			weight := DefaultWeight
			if len(fields) >= 6 {
				weight = util.ParseFloatOr(fields[5], DefaultWeight)
			}
			relations = append(relations, common.RelationshipRecord{
				SourceName:    src,
				TargetName:    tgt,
				Description:   fields[3],
				Weight:        weight,
				RelationType:  relType,
				SourceChunkID: chunkID,
			})
		default:
			logger.Warn("[Extract] Skipping record with unknown tag", "chunk", chunkID, "record", record)
		}
	}

	return entities, relations
}
