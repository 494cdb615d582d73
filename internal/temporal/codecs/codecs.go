// Package codecs holds the payload codecs shared by the Temporal client and
// worker. Audit inputs carry whole event payloads, so they are compressed
// before they reach history.
package codecs

import (
	"go.temporal.io/sdk/converter"
)

// DataConverter returns the default JSON converter wrapped in a zlib codec.
// Payloads are only compressed when that makes them smaller.
func DataConverter() converter.DataConverter {
	return converter.NewCodecDataConverter(
		converter.GetDefaultDataConverter(),
		converter.NewZlibCodec(converter.ZlibCodecOptions{}),
	)
}
