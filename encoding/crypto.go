package enc

// CryptBytes encrypts or decrypts data in place.
// The specified offset refers to the entire file, not to the start of data.
//
// ATTENTION: The values in data are changed by the function.
// In the event of an error, the data remain unchanged.
//
//   encryption with AES-CTR (https://gchq.github.io/CyberChef/)
//     The counter is the last 4 bytes of the iv (big endian).
//     Counter starts at 0 and changes with the offset.
//     There is no padding.
//     [{"op":"AES Encrypt","args":[{"option":"Hex","string":"0101010101010...256 Bit Key...01010101010101"},
//     {"option":"Hex","string":"<12 bytes nonce>00000000"},
//     {"option":"Hex","string":""},"CTR","NoPadding","Key","Hex"]}]
func CryptBytes(data []byte, offset int64, key, iv []byte) error {
	e := NewEngine()
	defer e.Close()

	if err := e.Init(key, iv); err != nil {
		return err
	}
	return e.XORKeyStreamAt(data, data, offset)
}
