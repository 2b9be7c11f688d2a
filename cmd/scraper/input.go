package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"
)

const prompt = "Введите URL страницы bf4cheatreport.com: "

// resolveURL возвращает аргумент как есть или спрашивает URL у пользователя
func resolveURL(arg string, in io.Reader, out io.Writer) (string, error) {
	if arg != "" {
		return arg, nil
	}

	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", errors.Wrap(err, "ошибка чтения URL")
	}
	if errors.Is(err, io.EOF) && line == "" {
		return "", errors.New("URL не указан")
	}

	return strings.TrimSpace(line), nil
}
