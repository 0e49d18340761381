package bot

import (
	"errors"
	"fmt"

	"rental-bot/fetcher"
	"rental-bot/scraper"
)

const (
	msgNoURL = "検索URLが設定されていません。「URL更新 https://...」で検索URLを登録してください。"

	msgInvalidURL = "URLの形式が正しくありません。「URL更新 https://...」の形式で送信してください。"

	msgUnsupportedSite = "対応していないサイトのURLです。SUUMOまたはCanaryの検索結果URLを登録してください。"

	msgNothingFound = "条件に合う物件が見つかりませんでした。"

	msgNothingNew = "新着物件はありませんでした。"

	msgStoreFailure = "物件情報の照合に失敗しました。しばらくしてから再度お試しください。"

	msgUpdateFailed = "検索URLの更新に失敗しました。しばらくしてから再度お試しください。"

	msgHelp = "使い方:\n" +
		"・物件検索: 登録済みURLで新着物件を検索します\n" +
		"・現在のURL: 登録済みの検索URLを表示します\n" +
		"・URL更新 https://...: 検索URLを登録・変更します"
)

func msgCurrentURL(url string) string {
	return "現在の検索URL:\n" + url
}

func msgURLUpdated(url string) string {
	return "検索URLを更新しました:\n" + url
}

func msgAllListings(url string) string {
	return "すべての物件はこちら: " + url
}

func msgAltText(total, start, end int) string {
	return fmt.Sprintf("物件を%d件見つけました。%d件目から%d件目を表示します。", total, start, end)
}

// msgScrapeFailure picks the user-facing text for a failed search.
func msgScrapeFailure(err error) string {
	if errors.Is(err, scraper.ErrUnsupportedSite) {
		return msgUnsupportedSite
	}
	return fetcher.UserMessage(err)
}
