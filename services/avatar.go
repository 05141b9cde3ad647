package services

import (
	"bytes"
	"encoding/base64"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"inkpost-api/utils"
)

const (
	avatarCanvas = 25
	avatarSize   = 100
)

var avatarPalette = []color.RGBA{
	{0x1a, 0x73, 0xe8, 0xff},
	{0xd9, 0x30, 0x25, 0xff},
	{0x18, 0x80, 0x38, 0xff},
	{0xf2, 0x99, 0x00, 0xff},
	{0x8e, 0x24, 0xaa, 0xff},
	{0x00, 0x89, 0x7b, 0xff},
	{0x5f, 0x63, 0x68, 0xff},
	{0xc2, 0x18, 0x5b, 0xff},
}

// GenerateAvatar renders the initials of name on a coloured square and returns it as a
// PNG data URI. The colour is stable for a given name.
func GenerateAvatar(name string) (string, error) {
	initials := utils.Initials(name)
	if initials == "" {
		initials = "?"
	}

	h := fnv.New32a()
	h.Write([]byte(name))
	bg := avatarPalette[h.Sum32()%uint32(len(avatarPalette))]

	small := image.NewRGBA(image.Rect(0, 0, avatarCanvas, avatarCanvas))
	draw.Draw(small, small.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	d := &font.Drawer{Dst: small, Src: image.NewUniform(color.White), Face: face}
	width := d.MeasureString(initials)
	// Face7x13 has ascent 11 and height 13, so a baseline of 17 centres the glyphs.
	d.Dot = fixed.Point26_6{X: (fixed.I(avatarCanvas) - width) / 2, Y: fixed.I(17)}
	d.DrawString(initials)

	out := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	draw.NearestNeighbor.Scale(out, out.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
