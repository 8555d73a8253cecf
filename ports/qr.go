package ports

// QRRenderer turns a raw QR payload into an image the browser can display
// inline.
type QRRenderer interface {
	Render(payload string) (dataURL string, err error)
}
