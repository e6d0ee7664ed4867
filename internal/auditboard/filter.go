package auditboard

import "strings"

// IDSet builds a membership set from a list of identifiers.
func IDSet(identifiers []int64) map[int64]struct{} {
	memberSet := make(map[int64]struct{}, len(identifiers))
	for _, identifier := range identifiers {
		memberSet[identifier] = struct{}{}
	}
	return memberSet
}

// FilterByFieldValue keeps records whose numeric field equals the value.
func FilterByFieldValue(records []Record, fieldName string, fieldValue int64) []Record {
	filteredRecords := []Record{}
	for _, candidateRecord := range records {
		if candidateValue, exists := candidateRecord.IntField(fieldName); exists && candidateValue == fieldValue {
			filteredRecords = append(filteredRecords, candidateRecord)
		}
	}
	return filteredRecords
}

// FilterByFieldMembership keeps records whose numeric field belongs to the set.
func FilterByFieldMembership(records []Record, fieldName string, memberSet map[int64]struct{}) []Record {
	filteredRecords := []Record{}
	for _, candidateRecord := range records {
		candidateValue, exists := candidateRecord.IntField(fieldName)
		if !exists {
			continue
		}
		if _, isMember := memberSet[candidateValue]; isMember {
			filteredRecords = append(filteredRecords, candidateRecord)
		}
	}
	return filteredRecords
}

// CollectDistinctIntField gathers the unique values of a numeric field across records.
func CollectDistinctIntField(records []Record, fieldName string) []int64 {
	seenValues := map[int64]struct{}{}
	distinctValues := []int64{}
	for _, candidateRecord := range records {
		candidateValue, exists := candidateRecord.IntField(fieldName)
		if !exists {
			continue
		}
		if _, alreadySeen := seenValues[candidateValue]; alreadySeen {
			continue
		}
		seenValues[candidateValue] = struct{}{}
		distinctValues = append(distinctValues, candidateValue)
	}
	return distinctValues
}

// MatchesPattern reports whether the record's uid or name contains the
// pattern, optionally case-sensitively.
func (record Record) MatchesPattern(pattern string, caseSensitive bool) bool {
	uidValue := record.UID()
	nameValue := record.Name()
	searchPattern := pattern

	if !caseSensitive {
		uidValue = strings.ToLower(uidValue)
		nameValue = strings.ToLower(nameValue)
		searchPattern = strings.ToLower(searchPattern)
	}

	return strings.Contains(uidValue, searchPattern) || strings.Contains(nameValue, searchPattern)
}
