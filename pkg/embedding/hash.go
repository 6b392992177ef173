package embedding

import (
	"context"
	"crypto/md5"
	"strconv"
	"strings"
)

// hashClient 把文本的 MD5 摘要展开成向量。它不理解语义，只保证确定性：
// 相同文本得到相同向量，空白文本得到零向量。用于开发环境和测试。
type hashClient struct {
	dims int
}

// NewHashClient 创建哈希向量客户端，dims <= 0 时使用 16 维。
func NewHashClient(dims int) Client {
	if dims <= 0 {
		dims = md5.Size
	}
	return &hashClient{dims: dims}
}

func (c *hashClient) Dimensions() int {
	return c.dims
}

func (c *hashClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	return c.embed(text), nil
}

func (c *hashClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = c.embed(t)
	}
	return out, nil
}

// embed 第 k 个 16 字节块取 md5(text)（k=0）或 md5(text + "#" + k)，每个字节缩放到 [0,1]。
func (c *hashClient) embed(text string) []float32 {
	vec := make([]float32, c.dims)
	if strings.TrimSpace(text) == "" {
		return vec
	}
	for k := 0; k*md5.Size < c.dims; k++ {
		input := text
		if k > 0 {
			input = text + "#" + strconv.Itoa(k)
		}
		sum := md5.Sum([]byte(input))
		for i, b := range sum {
			idx := k*md5.Size + i
			if idx >= c.dims {
				break
			}
			vec[idx] = float32(b) / 255
		}
	}
	return vec
}
