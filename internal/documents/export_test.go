package documents

var CacheWriteScript = cacheWriteScript
