package bot

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-bot/models"
	"rental-bot/services"
)

func TestFlexMessagesBatchesAndLink(t *testing.T) {
	batches := services.Paginate(listings(13), 10, 20)
	msgs := FlexFormatter{}.Messages(batches, searchURL)

	require.Len(t, msgs, 3)
	first, ok := msgs[0].(*linebot.FlexMessage)
	require.True(t, ok)
	assert.Equal(t, "物件を13件見つけました。1件目から10件目を表示します。", first.AltText)

	carousel, ok := first.Contents.(*linebot.CarouselContainer)
	require.True(t, ok)
	assert.Len(t, carousel.Contents, 10)

	second := msgs[1].(*linebot.FlexMessage)
	assert.Equal(t, "物件を13件見つけました。11件目から13件目を表示します。", second.AltText)

	link := msgs[2].(*linebot.TextMessage)
	assert.Equal(t, "すべての物件はこちら: "+searchURL, link.Text)
}

func TestBubbleFields(t *testing.T) {
	l := models.Listing{
		Title:         "パークハウス",
		Address:       "東京都新宿区",
		Floor:         "3階",
		Rent:          "8.5万円",
		ManagementFee: "5000円",
		Age:           "築 12 年",
		ImageURL:      "http://insecure.example/img.jpg",
		DetailURL:     "https://suumo.jp/chintai/jnc_1/",
		Access:        []string{"新宿駅 歩8分"},
	}

	b := FlexFormatter{}.Bubble(l)

	hero, ok := b.Hero.(*linebot.ImageComponent)
	require.True(t, ok)
	assert.Equal(t, services.PlaceholderImageURL, hero.URL)

	title := b.Body.Contents[0].(*linebot.TextComponent)
	assert.Equal(t, "パークハウス", title.Text)

	rows := b.Body.Contents[1].(*linebot.BoxComponent).Contents
	require.Len(t, rows, 7)
	assert.Equal(t, "8.5万円/5000円", valueOf(t, rows[2]))
	assert.Equal(t, "-", valueOf(t, rows[3]), "empty layout shows a dash")
	assert.Equal(t, "築12年", valueOf(t, rows[5]))

	button := b.Footer.Contents[0].(*linebot.ButtonComponent)
	action := button.Action.(*linebot.URIAction)
	assert.Equal(t, "詳細を見る", action.Label)
	assert.Equal(t, l.DetailURL, action.URI)
}

func valueOf(t *testing.T, c linebot.FlexComponent) string {
	t.Helper()
	box, ok := c.(*linebot.BoxComponent)
	require.True(t, ok)
	require.Len(t, box.Contents, 2)
	return box.Contents[1].(*linebot.TextComponent).Text
}
