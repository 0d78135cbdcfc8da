package minic

// builtinHeaders supplies the declarations of a few standard headers so
// common programs analyze cleanly without a system include tree.
var builtinHeaders = map[string]string{
	"stddef.h": `
#define NULL 0
typedef unsigned long size_t;
typedef long ptrdiff_t;
`,
	"stdbool.h": `
typedef int bool;
#define true 1
#define false 0
`,
	"stdio.h": `
#include <stddef.h>
struct _IO_FILE;
typedef struct _IO_FILE FILE;
#define EOF (-1)
extern FILE *stdin;
extern FILE *stdout;
extern FILE *stderr;
int printf(const char *format, ...);
int fprintf(FILE *stream, const char *format, ...);
int sprintf(char *str, const char *format, ...);
int snprintf(char *str, size_t size, const char *format, ...);
int puts(const char *s);
int putchar(int c);
int getchar(void);
char *fgets(char *s, int size, FILE *stream);
FILE *fopen(const char *path, const char *mode);
int fclose(FILE *stream);
`,
	"stdlib.h": `
#include <stddef.h>
#define EXIT_SUCCESS 0
#define EXIT_FAILURE 1
void *malloc(size_t size);
void *calloc(size_t nmemb, size_t size);
void *realloc(void *ptr, size_t size);
void free(void *ptr);
void exit(int status);
int atoi(const char *nptr);
int abs(int j);
`,
	"string.h": `
#include <stddef.h>
size_t strlen(const char *s);
int strcmp(const char *s1, const char *s2);
int strncmp(const char *s1, const char *s2, size_t n);
char *strcpy(char *dest, const char *src);
char *strncpy(char *dest, const char *src, size_t n);
char *strcat(char *dest, const char *src);
char *strchr(const char *s, int c);
void *memcpy(void *dest, const void *src, size_t n);
void *memset(void *s, int c, size_t n);
int memcmp(const void *s1, const void *s2, size_t n);
`,
	"assert.h": `
#define assert(expr) ((void)0)
`,
}
