// Package encoder defines the transcode adapter interface and its implementations.
//
// The adapter normalizes a retrieved file into the fixed target profile.
// On success exactly one copy survives: the pre-transcode file is deleted
// only after the output is verified to exist and be non-empty.
package encoder

import "context"

// outputExt is the container extension every normalized file gets.
const outputExt = ".mp4"

// normalizedSuffix marks files that were renamed without a custom name.
const normalizedSuffix = "_mac"

// Encoder converts one local file to the target profile. desiredBase is the
// output base name without extension; when empty, the input's base name plus
// the normalization suffix is used.
type Encoder interface {
	Encode(ctx context.Context, inputPath, desiredBase string) (string, error)
}
