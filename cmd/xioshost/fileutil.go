package main

import "os"

// readFileIfExists returns (nil, nil) for a missing path rather than
// an error, so config-driven file paths can be optional.
func readFileIfExists(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return raw, nil
}
