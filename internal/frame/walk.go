package frame

// WalkLengths infers the byte length of each of numFrames consecutive
// frames packed back-to-back in data, for containers written without the
// memory_sizes_of_frames metadata attribute (the legacy on-disk form).
// It walks each frame's block headers exactly as Decode does and reports
// the padded, 8-byte-aligned length actually consumed; frames after the
// last one whose data is present are left as zero length.
func WalkLengths(data []byte, numFrames int, count uint64, depth uint8, blockLen int) ([]int, error) {
	lengths := make([]int, numFrames)
	offset := 0
	for i := 0; i < numFrames; i++ {
		if offset >= len(data) {
			break
		}
		_, consumed, _, err := Decode(data[offset:], count, depth, blockLen)
		if err != nil {
			return nil, err
		}
		padded := consumed
		if r := padded % 8; r != 0 {
			padded += 8 - r
		}
		lengths[i] = padded
		offset += padded
	}
	return lengths, nil
}
