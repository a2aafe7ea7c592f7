package cache

const renderedCapacity = 512

var renderedPostCache = NewBoundedCache[string, []byte](renderedCapacity)

func GetRenderedPost(contentHash, syntaxTheme string) ([]byte, bool) {
	return renderedPostCache.Get(contentHash + ":" + syntaxTheme)
}

func SetRenderedPost(contentHash, syntaxTheme string, html []byte) {
	renderedPostCache.Set(contentHash+":"+syntaxTheme, html)
}

func ClearRenderedPostCache() {
	renderedPostCache.Clear()
}
