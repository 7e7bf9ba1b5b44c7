// Package archive 将 zip、tar、gz 压缩包解压到指定目录
package archive

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/spf13/afero"
)

// tar 的 "ustar" 魔数位于 257 字节处
const tarSniffSize = 262

var (
	ErrUnsupported = errors.New("不支持的压缩格式")
	ErrUnsafePath  = errors.New("压缩包条目路径越界")
	ErrEmpty       = errors.New("空压缩包")
)

// Outcome 解压结果，Expanded 为 false 时 Reason 说明原因
type Outcome struct {
	Expanded bool
	Files    int
	Reason   error
}

func expanded(files int) Outcome {
	return Outcome{Expanded: true, Files: files}
}

func failed(reason error) Outcome {
	return Outcome{Reason: reason}
}

// Options 解压选项
type Options struct {
	// Overwrite 为 false 时条目以 O_EXCL 创建，目标已存在的条目会让解压失败
	Overwrite bool
}

// Expand 按扩展名选择格式，把 src 解压到 dst
func Expand(fs afero.Fs, src, dst string, opts Options) Outcome {
	var (
		n   int
		err error
	)

	switch strings.ToLower(filepath.Ext(src)) {
	case ".zip":
		n, err = expandZip(fs, src, dst, opts)
	case ".tar":
		n, err = expandTarFile(fs, src, dst, opts)
	case ".gz":
		n, err = expandGzip(fs, src, dst, opts)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(src))
	}

	if err != nil {
		return failed(err)
	}
	return expanded(n)
}

func expandZip(fs afero.Fs, src, dst string, opts Options) (int, error) {
	f, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("打开压缩包: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("读取压缩包信息: %w", err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("读取 zip: %w", err)
	}

	if err := fs.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("创建解压目录: %w", err)
	}

	count := 0
	for _, zf := range zr.File {
		target, err := safeJoin(dst, zf.Name)
		if err != nil {
			return count, err
		}

		if zf.FileInfo().IsDir() {
			if err := fs.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("创建目录 %s: %w", zf.Name, err)
			}
			continue
		}

		// 符号链接等特殊条目跳过
		if !zf.Mode().IsRegular() {
			continue
		}

		rc, err := zf.Open()
		if err != nil {
			return count, fmt.Errorf("打开条目 %s: %w", zf.Name, err)
		}
		err = writeFile(fs, target, rc, zf.Mode().Perm(), opts)
		rc.Close()
		if err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

func expandTarFile(fs afero.Fs, src, dst string, opts Options) (int, error) {
	f, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("打开压缩包: %w", err)
	}
	defer f.Close()

	return expandTar(fs, f, dst, opts)
}

func expandTar(fs afero.Fs, r io.Reader, dst string, opts Options) (int, error) {
	tr := tar.NewReader(r)

	count := 0
	entries := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("读取 tar: %w", err)
		}

		if entries == 0 {
			if err := fs.MkdirAll(dst, 0755); err != nil {
				return count, fmt.Errorf("创建解压目录: %w", err)
			}
		}
		entries++

		target, err := safeJoin(dst, hdr.Name)
		if err != nil {
			return count, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := fs.MkdirAll(target, 0755); err != nil {
				return count, fmt.Errorf("创建目录 %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			if err := writeFile(fs, target, tr, os.FileMode(hdr.Mode).Perm(), opts); err != nil {
				return count, err
			}
			count++
		default:
			// 链接、设备文件等不解压
		}
	}

	if entries == 0 {
		return 0, ErrEmpty
	}
	return count, nil
}

// expandGzip 解压 gz：内容是 tar 时展开，否则写出单个文件
func expandGzip(fs afero.Fs, src, dst string, opts Options) (int, error) {
	f, err := fs.Open(src)
	if err != nil {
		return 0, fmt.Errorf("打开压缩包: %w", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("读取 gzip: %w", err)
	}
	defer gz.Close()

	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	br := bufio.NewReaderSize(gz, tarSniffSize*4)
	head, err := br.Peek(tarSniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("读取 gzip: %w", err)
	}

	if filetype.Is(head, "tar") || strings.HasSuffix(strings.ToLower(stem), ".tar") {
		return expandTar(fs, br, dst, opts)
	}

	target, err := safeJoin(dst, stem)
	if err != nil {
		return 0, err
	}
	if err := fs.MkdirAll(dst, 0755); err != nil {
		return 0, fmt.Errorf("创建解压目录: %w", err)
	}
	if err := writeFile(fs, target, br, 0644, opts); err != nil {
		return 0, err
	}
	return 1, nil
}

// safeJoin 拼接条目路径，拒绝跳出 dst 的条目
func safeJoin(dst, name string) (string, error) {
	target := filepath.Join(dst, filepath.FromSlash(name))

	rel, err := filepath.Rel(dst, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

func writeFile(fs afero.Fs, target string, r io.Reader, perm os.FileMode, opts Options) error {
	if perm == 0 {
		perm = 0644
	}

	if err := fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("创建目录: %w", err)
	}

	flag := os.O_CREATE | os.O_WRONLY | os.O_EXCL
	if opts.Overwrite {
		flag = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	}

	out, err := fs.OpenFile(target, flag, perm)
	if err != nil {
		return fmt.Errorf("创建文件 %s: %w", target, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("写入文件 %s: %w", target, err)
	}
	return out.Close()
}
