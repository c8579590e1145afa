package render

import (
	"image/color"
	"math"
)

// ratingStops map ratings 1..5 onto a red to green gradient.
var ratingStops = []color.RGBA{
	parseHex("#d73027"),
	parseHex("#f46d43"),
	parseHex("#ffc000"),
	parseHex("#a6d96a"),
	parseHex("#66bd63"),
}

// histogramColors colour the 1..5 star bars.
var histogramColors = []color.RGBA{
	parseHex("#ff3b3b"),
	parseHex("#f46d43"),
	parseHex("#ffc000"),
	parseHex("#a6d96a"),
	parseHex("#66bd63"),
}

// gaugeColors colour the five mood meter sectors.
var gaugeColors = []color.RGBA{
	parseHex("#D32F2F"),
	parseHex("#F57C00"),
	parseHex("#FDD835"),
	parseHex("#9CCC65"),
	parseHex("#388E3C"),
}

var defaultProviderColor = parseHex("#cccccc")

var providerColors = map[string]color.RGBA{
	"Товеко QR-код": parseHex("#FF9F00"),
	"Яндекс":        parseHex("#f43"),
	"2ГИС":          parseHex("#50A739"),
	"Google":        parseHex("#3d83f3"),
	"Restoclub":     parseHex("#ed0f08"),
	"Фламп":         parseHex("#2967e8"),
	"Zoon":          parseHex("#614ba0"),
	"Tripadvisor":   parseHex("#34e0a1"),
	"Yell":          parseHex("#ff3b3b"),
	"Отзовик":       parseHex("#ce2457"),
	"Irecommend":    parseHex("#fd6540"),
	"Афиша":         parseHex("#ce1f1d"),
	"Foursquare":    parseHex("#fa4778"),
	"Т-Банк":        parseHex("#ffdd2d"),
	"Нет монет":     parseHex("#3e3467"),
	"Zomato":        parseHex("#e33745"),
	"Ваш Досуг":     parseHex("#374A3B"),
	"Деливери":      parseHex("#6fe250"),
	"Островок":      parseHex("#0e41d2"),
	"OneTwoTrip":    parseHex("#000"),
	"101hotels":     parseHex("#ff4141"),
	"WhatsApp":      parseHex("#25d366"),
	"Telegram":      parseHex("#25a2e0"),
	"Instagram":     parseHex("#c2328b"),
	"Вконтакте":     parseHex("#07f"),
	"Телефон":       parseHex("#fdc73e"),
	"Email":         parseHex("#F4F778"),
	"Яндекс.Еда":    parseHex("#5381ae"),
	"DOCDOC":        parseHex("#F0F0F0"),
	"NAPOPRAVKU":    parseHex("#F0F0F0"),
}

// ProviderColor returns the brand colour of a review platform.
func ProviderColor(provider string) color.RGBA {
	if c, ok := providerColors[provider]; ok {
		return c
	}
	return defaultProviderColor
}

// RatingColor interpolates the gradient; values outside 1..5 are clamped.
func RatingColor(rating float64) color.RGBA {
	t := (math.Max(1, math.Min(5, rating)) - 1) / 4
	pos := t * float64(len(ratingStops)-1)
	i := int(math.Floor(pos))
	if i >= len(ratingStops)-1 {
		return ratingStops[len(ratingStops)-1]
	}
	frac := pos - float64(i)
	a, b := ratingStops[i], ratingStops[i+1]
	mix := func(x, y uint8) uint8 {
		return uint8(math.Round(float64(x) + (float64(y)-float64(x))*frac))
	}
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xff}
}
