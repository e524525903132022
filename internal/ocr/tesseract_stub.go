//go:build !tesseract

package ocr

func newTesseract(Config) (Recognizer, error) {
	return nil, ErrOCRNotEnabled
}
