// Package wav 解析 RIFF/WAV 容器，定位其中的 PCM 负载。
// 不做任何转码：只读取格式块并找到 data 块的位置。
package wav

import (
	"encoding/binary"
	"fmt"
)

// Format WAV 格式块中的关键参数。
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// File 解析结果：格式信息与 PCM 数据（指向原始切片，不复制）。
type File struct {
	Format Format
	PCM    []byte
}

const headerSize = 12

// Parse 遍历 RIFF 块结构，返回格式参数与 data 块内容。
// 录音器产出的 WAV 常带有 LIST/fact 等附加块，固定偏移 44 的读法在这里不可靠。
func Parse(data []byte) (*File, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("wav: 数据过短 (%d 字节)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: 不是 RIFF/WAVE 容器")
	}

	f := &File{}
	sawFmt := false
	offset := headerSize
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if body+chunkSize > len(data) {
			// 截断的尾块：data 块按剩余长度处理，其余块视为损坏
			if chunkID == "data" {
				f.PCM = data[body:]
				break
			}
			return nil, fmt.Errorf("wav: 块 %q 越界 (声明 %d 字节)", chunkID, chunkSize)
		}

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 {
				return nil, fmt.Errorf("wav: fmt 块过短 (%d 字节)", chunkSize)
			}
			f.Format = Format{
				AudioFormat:   binary.LittleEndian.Uint16(data[body : body+2]),
				Channels:      binary.LittleEndian.Uint16(data[body+2 : body+4]),
				SampleRate:    binary.LittleEndian.Uint32(data[body+4 : body+8]),
				BitsPerSample: binary.LittleEndian.Uint16(data[body+14 : body+16]),
			}
			sawFmt = true
		case "data":
			f.PCM = data[body : body+chunkSize]
		}

		// 块按 2 字节对齐
		offset = body + chunkSize
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !sawFmt {
		return nil, fmt.Errorf("wav: 缺少 fmt 块")
	}
	if f.PCM == nil {
		return nil, fmt.Errorf("wav: 缺少 data 块")
	}
	return f, nil
}
