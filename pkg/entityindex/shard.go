package entityindex

import (
	"fmt"
	"strconv"
)

// ShardWidth is the size of the numeric window covered by one external-id
// shard file. Shard membership depends only on the identifier's numeric
// value, so it is stable across rebuilds regardless of corpus size.
const ShardWidth = 100_000

// CatchAllShard holds external ids whose numeric suffix cannot be parsed.
const CatchAllShard = "other.json"

// ShardFile returns the shard filename for an external id. Identifiers
// have the form <prefix><digits> (e.g. "Q937"); the digits select a
// ShardWidth-wide window, named "<start>-<end>.json". Anything else goes
// to the catch-all shard. The builder and the lookup service both use
// this function, which is what keeps the layout consistent between them.
func ShardFile(externalID string) string {
	i := 0
	for i < len(externalID) && (externalID[i] < '0' || externalID[i] > '9') {
		i++
	}
	digits := externalID[i:]
	if digits == "" {
		return CatchAllShard
	}

	n, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		return CatchAllShard
	}

	start := (n / ShardWidth) * ShardWidth
	return fmt.Sprintf("%d-%d.json", start, start+ShardWidth-1)
}
