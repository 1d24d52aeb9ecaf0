package kvstore


//============================================= Buffer-Pool-Aware Page Access


// fetchPage
//	Returns the bytes of page pageIndex in the file at path, consulting
//	bufferPool first when non-nil and populating it on a miss. pf must
//	already be open on path.
func fetchPage(pf *PageFile, bufferPool *BufferPool, path string, pageIndex PageIndex) ([]byte, error) {
	if bufferPool != nil {
		if cached, ok := bufferPool.get(path, pageIndex); ok { return cached, nil }
	}

	page, err := pf.ReadPage(pageIndex)
	if err != nil { return nil, err }

	if bufferPool != nil {
		bufferPool.insert(path, pageIndex, page)
	}

	return page, nil
}
