package train

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ddev-hyeoncheol/recommendation-system/core"
)

// ReadInteractions 从 JSONL 文件读取交互记录，每行一条，逐条校验。
func ReadInteractions(path string) ([]core.Interaction, error) {
	var out []core.Interaction
	err := readLines(path, func(line []byte, n int) error {
		var in core.Interaction
		if err := json.Unmarshal(line, &in); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if err := in.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		out = append(out, in)
		return nil
	})
	return out, err
}

// ReadUserMeta 从 JSONL 文件读取用户元数据表。文件不存在时返回空表。
func ReadUserMeta(path string) (map[string]core.UserMeta, error) {
	out := make(map[string]core.UserMeta)
	if path == "" {
		return out, nil
	}
	err := readLines(path, func(line []byte, n int) error {
		var m core.UserMeta
		if err := json.Unmarshal(line, &m); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if m.UID == "" {
			return fmt.Errorf("line %d: missing uid", n)
		}
		out[m.UID] = m
		return nil
	})
	if os.IsNotExist(err) {
		return make(map[string]core.UserMeta), nil
	}
	return out, err
}

// ReadProductMeta 从 JSONL 文件读取商品元数据表。文件不存在时返回空表。
func ReadProductMeta(path string) (map[string]core.ProductMeta, error) {
	out := make(map[string]core.ProductMeta)
	if path == "" {
		return out, nil
	}
	err := readLines(path, func(line []byte, n int) error {
		var m core.ProductMeta
		if err := json.Unmarshal(line, &m); err != nil {
			return fmt.Errorf("line %d: %w", n, err)
		}
		if m.PID == "" {
			return fmt.Errorf("line %d: missing pid", n)
		}
		out[m.PID] = m
		return nil
	})
	if os.IsNotExist(err) {
		return make(map[string]core.ProductMeta), nil
	}
	return out, err
}

func readLines(path string, fn func(line []byte, n int) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for scanner.Scan() {
		n++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := fn(line, n); err != nil {
			return err
		}
	}
	return scanner.Err()
}
