// Package rgb565 provides a 16-bit RGB color format for the ILI9341 display controller.
//
// With the interface pixel format set to 16 bits per pixel, the ILI9341 expects
// each pixel as two bytes, most significant byte first:
//
//	Bit:    15 14 13 12 11 | 10  9  8  7  6  5 |  4  3  2  1  0
//	Field:   R  R  R  R  R |  G  G  G  G  G  G |  B  B  B  B  B
//
// This package provides:
//
// - RGB565: A color type holding a packed 5-6-5 value
// - Model: A color model for converting standard Go colors to RGB565
// - Image: An image.Image implementation storing pixels in panel byte order
//
// Example usage:
//
//	// Create a 240x320 image
//	img := rgb565.NewImage(image.Rect(0, 0, 240, 320))
//
//	// Set a pixel to pure red
//	img.SetRGB565(10, 20, rgb565.New(0xFF, 0, 0))
//
//	// Get a pixel
//	c := img.RGB565At(10, 20)
//	println(uint16(c)) // Output: 63488
//
//	// Use with standard Go image operations
//	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
package rgb565
